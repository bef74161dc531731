// Package sheets implements the wallet store on a Google Sheets tab.
package sheets

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"wallet-roster/internal/domain"
	sheetsapi "wallet-roster/internal/sheets"
	"wallet-roster/internal/storage"
)

// SheetName is the tab holding wallet records.
const SheetName = "Wallets"

// headerRow is the fixed column enumeration, in exact order.
var headerRow = []string{"Username", "MemberId", "WalletAddress", "RoleLabel"}

// dataRange addresses all data rows (row 1 is the header).
const dataRange = SheetName + "!A2:D"

// deleteChunkSize caps deleteDimension requests per batchUpdate call.
const deleteChunkSize = 50

// WalletStore implements storage.WalletStore on one spreadsheet tab.
type WalletStore struct {
	client *sheetsapi.Client
	logger *log.Logger

	mu      sync.Mutex
	ensured bool
	sheetID int64
}

// NewWalletStore creates a sheet-backed wallet store.
func NewWalletStore(client *sheetsapi.Client, logger *log.Logger) *WalletStore {
	if logger == nil {
		logger = log.Default()
	}
	return &WalletStore{client: client, logger: logger}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// EnsureSchema verifies the Wallets tab exists with the expected
// header, creating the tab and rewriting the header as needed.
func (s *WalletStore) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(ctx)
}

func (s *WalletStore) ensureLocked(ctx context.Context) error {
	if s.ensured {
		return nil
	}

	spreadsheet, err := s.client.GetSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}

	sheetID, found := findSheetID(spreadsheet, SheetName)
	if !found {
		req := []sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: sheetsapi.AddSheetProperties{Title: SheetName},
			},
		}}
		if err := s.client.BatchUpdate(ctx, req); err != nil {
			return fmt.Errorf("create sheet %s: %w", SheetName, err)
		}
		s.logger.Printf("Created sheet %s", SheetName)

		spreadsheet, err = s.client.GetSpreadsheet(ctx)
		if err != nil {
			return fmt.Errorf("get spreadsheet after create: %w", err)
		}
		sheetID, found = findSheetID(spreadsheet, SheetName)
		if !found {
			return fmt.Errorf("sheet %s missing after create", SheetName)
		}
	}

	headerRange := fmt.Sprintf("%s!A1:D1", SheetName)
	rows, err := s.client.GetValues(ctx, headerRange)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if !headerMatches(rows) {
		if err := s.client.UpdateValues(ctx, headerRange, [][]string{headerRow}); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		s.logger.Printf("Rewrote header row of sheet %s", SheetName)
	}

	s.sheetID = sheetID
	s.ensured = true
	return nil
}

// ensure runs schema setup once per store instance, retrying on the
// next call after a failure.
func (s *WalletStore) ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(ctx)
}

func findSheetID(sp *sheetsapi.Spreadsheet, title string) (int64, bool) {
	for _, sheet := range sp.Sheets {
		if sheet.Properties.Title == title {
			return sheet.Properties.SheetID, true
		}
	}
	return 0, false
}

func headerMatches(rows [][]string) bool {
	if len(rows) == 0 || len(rows[0]) < len(headerRow) {
		return false
	}
	for i, want := range headerRow {
		if rows[0][i] != want {
			return false
		}
	}
	return true
}

// GetByMemberID scans the data region for the first key match.
func (s *WalletStore) GetByMemberID(ctx context.Context, memberID string) (*domain.WalletRecord, error) {
	if memberID == "" {
		return nil, storage.ErrInvalidInput
	}
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	rows, err := s.client.GetValues(ctx, dataRange)
	if err != nil {
		return nil, fmt.Errorf("read data rows: %w", err)
	}

	for i, row := range rows {
		if cell(row, 1) == memberID {
			return recordFromRow(row, i+domain.HeaderOffset), nil
		}
	}
	return nil, storage.ErrNotFound
}

// List returns every record with its 1-based sheet row position.
func (s *WalletStore) List(ctx context.Context) ([]*domain.WalletRecord, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	rows, err := s.client.GetValues(ctx, dataRange)
	if err != nil {
		return nil, fmt.Errorf("read data rows: %w", err)
	}

	records := make([]*domain.WalletRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		records = append(records, recordFromRow(row, i+domain.HeaderOffset))
	}
	return records, nil
}

// Upsert appends a new row or overwrites the member's existing row.
func (s *WalletStore) Upsert(ctx context.Context, rec *domain.WalletRecord) (domain.UpsertAction, error) {
	if rec == nil || rec.MemberID == "" {
		return "", storage.ErrInvalidInput
	}
	if err := s.ensure(ctx); err != nil {
		return "", err
	}

	rows, err := s.client.GetValues(ctx, dataRange)
	if err != nil {
		return "", fmt.Errorf("read data rows: %w", err)
	}

	values := [][]string{{rec.DisplayName, rec.MemberID, rec.WalletAddress, rec.RoleLabel}}

	for i, row := range rows {
		if cell(row, 1) != rec.MemberID {
			continue
		}
		rowNum := i + domain.HeaderOffset
		rng := fmt.Sprintf("%s!A%d:D%d", SheetName, rowNum, rowNum)
		if err := s.client.UpdateValues(ctx, rng, values); err != nil {
			return "", fmt.Errorf("update row %d: %w", rowNum, err)
		}
		return domain.UpsertUpdated, nil
	}

	if err := s.client.AppendValues(ctx, dataRange, values); err != nil {
		return "", fmt.Errorf("append row: %w", err)
	}
	return domain.UpsertInserted, nil
}

// BatchUpdateRoles rewrites role cells in a single batched call.
func (s *WalletStore) BatchUpdateRoles(ctx context.Context, updates []domain.RoleUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}

	data := make([]sheetsapi.ValueRange, 0, len(updates))
	for _, u := range updates {
		if u.Row < domain.HeaderOffset {
			return 0, fmt.Errorf("%w: row %d is not a data row", storage.ErrInvalidInput, u.Row)
		}
		data = append(data, sheetsapi.ValueRange{
			Range:  fmt.Sprintf("%s!D%d:D%d", SheetName, u.Row, u.Row),
			Values: [][]string{{u.RoleLabel}},
		})
	}

	if err := s.client.BatchUpdateValues(ctx, data); err != nil {
		return 0, fmt.Errorf("batch update roles: %w", err)
	}
	return len(updates), nil
}

// BatchDelete removes rows highest-first in chunks. Deleting a lower
// row first would shift every higher position down by one and
// invalidate the rest of the plan.
func (s *WalletStore) BatchDelete(ctx context.Context, refs []domain.RecordRef) (int, error) {
	if len(refs) == 0 {
		return 0, nil
	}
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}

	seen := make(map[int]struct{}, len(refs))
	rows := make([]int, 0, len(refs))
	for _, ref := range refs {
		if ref.Row < domain.HeaderOffset {
			continue
		}
		if _, dup := seen[ref.Row]; dup {
			continue
		}
		seen[ref.Row] = struct{}{}
		rows = append(rows, ref.Row)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rows)))

	deleted := 0
	for start := 0; start < len(rows); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		requests := make([]sheetsapi.Request, 0, len(chunk))
		for _, row := range chunk {
			requests = append(requests, sheetsapi.Request{
				DeleteDimension: &sheetsapi.DeleteDimensionRequest{
					Range: sheetsapi.DimensionRange{
						SheetID:    s.sheetID,
						Dimension:  "ROWS",
						StartIndex: int64(row - 1), // 0-based
						EndIndex:   int64(row),     // exclusive
					},
				},
			})
		}

		if err := s.client.BatchUpdate(ctx, requests); err != nil {
			return deleted, fmt.Errorf("batch delete rows: %w", err)
		}
		deleted += len(chunk)
	}
	return deleted, nil
}

// cell reads row[i], tolerating short rows.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func recordFromRow(row []string, rowNum int) *domain.WalletRecord {
	return &domain.WalletRecord{
		DisplayName:   cell(row, 0),
		MemberID:      cell(row, 1),
		WalletAddress: cell(row, 2),
		RoleLabel:     cell(row, 3),
		Row:           rowNum,
	}
}
