// Package sheets implements a minimal Google Sheets v4 REST client
// covering the calls the wallet store needs. Every request is routed
// through the retry wrapper; only rate-limit responses are retried.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"wallet-roster/internal/retry"
)

// DefaultBaseURL is the Sheets v4 spreadsheets endpoint.
const DefaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// DefaultTimeout bounds a single HTTP request, not the retry schedule.
const DefaultTimeout = 30 * time.Second

// Client is a spreadsheet-scoped Sheets API client.
type Client struct {
	baseURL       string
	spreadsheetID string
	client        *http.Client
	retryCfg      retry.Config
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom http.Client. Overrides WithTokenSource.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithBaseURL overrides the API endpoint (used by tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTokenSource authenticates requests with the given OAuth2 source.
func WithTokenSource(ts oauth2.TokenSource) ClientOption {
	return func(c *Client) {
		c.client = &http.Client{
			Timeout:   c.client.Timeout,
			Transport: &oauth2.Transport{Source: ts},
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithRetryConfig overrides the retry schedule. The rate-limit
// predicate is always IsRateLimited regardless of cfg.Retryable.
func WithRetryConfig(cfg retry.Config) ClientOption {
	return func(c *Client) {
		cfg.Retryable = IsRateLimited
		c.retryCfg = cfg
	}
}

// NewClient creates a client bound to one spreadsheet.
func NewClient(spreadsheetID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		spreadsheetID: spreadsheetID,
		client:        &http.Client{Timeout: DefaultTimeout},
		retryCfg:      retry.Config{Retryable: IsRateLimited},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the Sheets API.
type APIError struct {
	StatusCode int    // HTTP status
	Status     string // e.g. RESOURCE_EXHAUSTED
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

// IsRateLimited reports whether err is a rate-limit signal: HTTP 429
// or a RESOURCE_EXHAUSTED status. This is the only error class the
// retry wrapper is allowed to retry.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
}

// errorBody is the JSON error envelope of the Sheets API.
type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// do performs one HTTP exchange through the retry wrapper and decodes
// the response body into result when non-nil.
func (c *Client) do(ctx context.Context, desc, method, u string, body, result interface{}) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	return retry.Do(ctx, c.retryCfg, desc, func(ctx context.Context) error {
		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", desc, err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s: read response: %w", desc, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &APIError{StatusCode: resp.StatusCode}
			var eb errorBody
			if json.Unmarshal(respBody, &eb) == nil {
				apiErr.Status = eb.Error.Status
				apiErr.Message = eb.Error.Message
			}
			if apiErr.Message == "" {
				apiErr.Message = string(respBody)
			}
			return apiErr
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("%s: unmarshal response: %w", desc, err)
			}
		}
		return nil
	})
}

// GetSpreadsheet retrieves the sheet list (titles and numeric IDs).
func (c *Client) GetSpreadsheet(ctx context.Context) (*Spreadsheet, error) {
	u := fmt.Sprintf("%s/%s?fields=sheets.properties", c.baseURL, c.spreadsheetID)
	var out Spreadsheet
	if err := c.do(ctx, "spreadsheets.get", http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetValues reads a range. Cells come back as strings (the API's
// formatted-value rendering); missing trailing cells are absent.
func (c *Client) GetValues(ctx context.Context, rng string) ([][]string, error) {
	u := fmt.Sprintf("%s/%s/values/%s", c.baseURL, c.spreadsheetID, url.PathEscape(rng))
	var out valueRangeResponse
	if err := c.do(ctx, "values.get", http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return toStringRows(out.Values), nil
}

// UpdateValues overwrites a range with raw (unparsed) values.
func (c *Client) UpdateValues(ctx context.Context, rng string, values [][]string) error {
	u := fmt.Sprintf("%s/%s/values/%s?valueInputOption=RAW", c.baseURL, c.spreadsheetID, url.PathEscape(rng))
	body := ValueRange{Range: rng, Values: values}
	return c.do(ctx, "values.update", http.MethodPut, u, body, nil)
}

// AppendValues appends rows after the last data row of the range.
func (c *Client) AppendValues(ctx context.Context, rng string, values [][]string) error {
	u := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		c.baseURL, c.spreadsheetID, url.PathEscape(rng))
	body := ValueRange{Range: rng, Values: values}
	return c.do(ctx, "values.append", http.MethodPost, u, body, nil)
}

// BatchUpdateValues writes several independently addressed ranges in
// one call. The whole batch succeeds or the error propagates.
func (c *Client) BatchUpdateValues(ctx context.Context, data []ValueRange) error {
	u := fmt.Sprintf("%s/%s/values:batchUpdate", c.baseURL, c.spreadsheetID)
	body := batchUpdateValuesRequest{ValueInputOption: "RAW", Data: data}
	return c.do(ctx, "values.batchUpdate", http.MethodPost, u, body, nil)
}

// BatchUpdate submits structural requests (add sheet, delete rows).
func (c *Client) BatchUpdate(ctx context.Context, requests []Request) error {
	u := fmt.Sprintf("%s/%s:batchUpdate", c.baseURL, c.spreadsheetID)
	body := batchUpdateRequest{Requests: requests}
	return c.do(ctx, "spreadsheets.batchUpdate", http.MethodPost, u, body, nil)
}

// toStringRows coerces the API's loosely typed cell values. Numeric
// cells only appear when a sheet was edited by hand; the bot itself
// writes strings exclusively.
func toStringRows(raw [][]interface{}) [][]string {
	if raw == nil {
		return nil
	}
	rows := make([][]string, len(raw))
	for i, r := range raw {
		row := make([]string, len(r))
		for j, v := range r {
			switch val := v.(type) {
			case string:
				row[j] = val
			case float64:
				row[j] = strconv.FormatFloat(val, 'f', -1, 64)
			case bool:
				row[j] = strconv.FormatBool(val)
			case nil:
				row[j] = ""
			default:
				row[j] = fmt.Sprint(val)
			}
		}
		rows[i] = row
	}
	return rows
}
