package sheets

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// SpreadsheetsScope grants read/write access to spreadsheets.
const SpreadsheetsScope = "https://www.googleapis.com/auth/spreadsheets"

// ServiceAccountTokenSource builds a token source from a service
// account JSON key file.
func ServiceAccountTokenSource(ctx context.Context, path string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(data, SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return cfg.TokenSource(ctx), nil
}
