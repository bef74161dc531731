// Package main produces a role coverage report from a dry
// reconciliation scan. It writes REPORT.md and report.csv without
// mutating the record store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/discordgo"

	"wallet-roster/internal/directory"
	"wallet-roster/internal/domain"
	"wallet-roster/internal/reconcile"
	"wallet-roster/internal/reporting"
	"wallet-roster/internal/roles"
	"wallet-roster/internal/sheets"
	"wallet-roster/internal/storage"
	"wallet-roster/internal/storage/migrations"
	pgstore "wallet-roster/internal/storage/postgres"
	sheetstore "wallet-roster/internal/storage/sheets"
)

func main() {
	loadEnvFile()

	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	token := flag.String("discord-token", os.Getenv("DISCORD_TOKEN"), "Discord bot token")
	guildID := flag.String("guild-id", os.Getenv("GUILD_ID"), "Guild to resolve members against")
	spreadsheetID := flag.String("spreadsheet-id", os.Getenv("SHEETS_SPREADSHEET_ID"), "Google Sheets spreadsheet ID")
	credentialsFile := flag.String("credentials-file", os.Getenv("GOOGLE_CREDENTIALS_FILE"), "Service account JSON key file")
	rolesFile := flag.String("roles-file", envOr("PRIORITY_ROLES_FILE", "roles.json"), "Priority role list JSON file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (optional backend)")
	backend := flag.String("backend", envOr("STORE_BACKEND", "sheets"), "Wallet store backend: sheets or postgres")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *token == "" {
		logger.Fatal("--discord-token is required")
	}
	if *guildID == "" {
		logger.Fatal("--guild-id is required")
	}

	ctx := context.Background()

	priorities, err := roles.LoadPriorityList(*rolesFile)
	if err != nil {
		logger.Fatalf("Failed to load priority roles: %v", err)
	}

	store, cleanup, err := createWalletStore(ctx, *backend, *spreadsheetID, *credentialsFile, *postgresDSN, logger)
	if err != nil {
		logger.Fatalf("Failed to create wallet store: %v", err)
	}
	defer cleanup()

	session, err := discordgo.New("Bot " + *token)
	if err != nil {
		logger.Fatalf("Failed to create discord session: %v", err)
	}

	dir, err := directory.NewGuildDirectory(directory.GuildDirectoryOptions{
		Session: session,
		GuildID: *guildID,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create guild directory: %v", err)
	}

	// A dry refresh pass computes every member's current state without
	// writing anything back.
	engine, err := reconcile.NewEngine(reconcile.Options{
		Store:     store,
		Directory: dir,
		Roles:     priorities,
		DryRun:    true,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	result, err := engine.Run(ctx, domain.ModeRefresh)
	if err != nil {
		logger.Fatalf("Scan failed: %v", err)
	}

	report := reporting.NewGenerator(priorities).Generate(result.Outcomes)

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatalf("Failed to create output dir: %v", err)
	}

	mdPath := filepath.Join(*outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		logger.Fatalf("Failed to write %s: %v", mdPath, err)
	}

	csvPath := filepath.Join(*outputDir, "report.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report)), 0o644); err != nil {
		logger.Fatalf("Failed to write %s: %v", csvPath, err)
	}

	fmt.Printf("Report written to %s and %s (checked %d records)\n", mdPath, csvPath, report.TotalChecked)
}

// createWalletStore selects the record store backend.
func createWalletStore(ctx context.Context, backend, spreadsheetID, credentialsFile, postgresDSN string, logger *log.Logger) (storage.WalletStore, func(), error) {
	switch backend {
	case "postgres":
		if postgresDSN == "" {
			return nil, nil, fmt.Errorf("--postgres-dsn is required for the postgres backend")
		}
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pgstore.NewWalletStore(pool), pool.Close, nil

	case "sheets":
		if spreadsheetID == "" {
			return nil, nil, fmt.Errorf("--spreadsheet-id is required for the sheets backend")
		}
		if credentialsFile == "" {
			return nil, nil, fmt.Errorf("--credentials-file is required for the sheets backend")
		}
		ts, err := sheets.ServiceAccountTokenSource(ctx, credentialsFile)
		if err != nil {
			return nil, nil, err
		}
		client := sheets.NewClient(spreadsheetID, sheets.WithTokenSource(ts))
		return sheetstore.NewWalletStore(client, logger), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (want sheets or postgres)", backend)
	}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
