package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"wallet-roster/internal/domain"
	"wallet-roster/internal/retry"
	sheetsapi "wallet-roster/internal/sheets"
	"wallet-roster/internal/storage"
)

// fakeSheets emulates the handful of Sheets API calls the store uses,
// keeping an in-memory grid and recording deleteDimension order.
type fakeSheets struct {
	mu        sync.Mutex
	hasSheet  bool
	header    []string
	rows      [][]string
	deletes   []int64 // startIndex of every deleteDimension, in call order
	batches   int     // structural batchUpdate calls
	addSheets int
}

func (f *fakeSheets) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := r.URL.Path
		switch {
		case r.Method == http.MethodGet && path == "/sheet1":
			sheets := []map[string]interface{}{}
			if f.hasSheet {
				sheets = append(sheets, map[string]interface{}{
					"properties": map[string]interface{}{"sheetId": 77, "title": SheetName},
				})
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"sheets": sheets})

		case r.Method == http.MethodGet && path == "/sheet1/values/Wallets!A1:D1":
			resp := map[string]interface{}{}
			if f.header != nil {
				resp["values"] = [][]string{f.header}
			}
			json.NewEncoder(w).Encode(resp)

		case r.Method == http.MethodGet && path == "/sheet1/values/Wallets!A2:D":
			resp := map[string]interface{}{}
			if len(f.rows) > 0 {
				resp["values"] = f.rows
			}
			json.NewEncoder(w).Encode(resp)

		case r.Method == http.MethodPut && strings.HasPrefix(path, "/sheet1/values/"):
			var body sheetsapi.ValueRange
			json.NewDecoder(r.Body).Decode(&body)
			rng := strings.TrimPrefix(path, "/sheet1/values/")
			if rng == "Wallets!A1:D1" {
				f.header = body.Values[0]
			} else {
				var from, to int
				fmt.Sscanf(rng, "Wallets!A%d:D%d", &from, &to)
				for from-2 >= len(f.rows) {
					f.rows = append(f.rows, nil)
				}
				f.rows[from-2] = body.Values[0]
			}
			w.Write([]byte(`{}`))

		case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
			var body sheetsapi.ValueRange
			json.NewDecoder(r.Body).Decode(&body)
			f.rows = append(f.rows, body.Values...)
			w.Write([]byte(`{}`))

		case r.Method == http.MethodPost && path == "/sheet1/values:batchUpdate":
			var body struct {
				Data []sheetsapi.ValueRange `json:"data"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			for _, vr := range body.Data {
				var from, to int
				fmt.Sscanf(vr.Range, "Wallets!D%d:D%d", &from, &to)
				idx := from - 2
				if idx < 0 || idx >= len(f.rows) {
					t.Errorf("batchUpdate addresses row %d outside data", from)
					continue
				}
				for len(f.rows[idx]) < 4 {
					f.rows[idx] = append(f.rows[idx], "")
				}
				f.rows[idx][3] = vr.Values[0][0]
			}
			w.Write([]byte(`{}`))

		case r.Method == http.MethodPost && path == "/sheet1:batchUpdate":
			var body struct {
				Requests []sheetsapi.Request `json:"requests"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.batches++
			for _, req := range body.Requests {
				if req.AddSheet != nil {
					f.hasSheet = true
					f.addSheets++
					continue
				}
				if req.DeleteDimension != nil {
					start := req.DeleteDimension.Range.StartIndex
					f.deletes = append(f.deletes, start)
					idx := int(start) - 1 // data slice index
					if idx >= 0 && idx < len(f.rows) {
						f.rows = append(f.rows[:idx], f.rows[idx+1:]...)
					}
				}
			}
			w.Write([]byte(`{}`))

		default:
			t.Errorf("unexpected request %s %s", r.Method, path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestStore(t *testing.T, fake *fakeSheets) (*WalletStore, func()) {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	client := sheetsapi.NewClient("sheet1",
		sheetsapi.WithBaseURL(server.URL),
		sheetsapi.WithRetryConfig(retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond, Jitter: 1}),
	)
	return NewWalletStore(client, nil), server.Close
}

func seededFake() *fakeSheets {
	return &fakeSheets{
		hasSheet: true,
		header:   []string{"Username", "MemberId", "WalletAddress", "RoleLabel"},
		rows: [][]string{
			{"alice", "1001", "0xaaa", "Boss"},
			{"bob", "1002", "0xbbb", ""},
			{"carol", "1003", "0xccc", "Capo"},
		},
	}
}

func TestWalletStore_EnsureSchemaCreatesSheetAndHeader(t *testing.T) {
	fake := &fakeSheets{} // no sheet, no header
	store, done := newTestStore(t, fake)
	defer done()

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	if !fake.hasSheet {
		t.Error("expected sheet to be created")
	}
	if fake.addSheets != 1 {
		t.Errorf("expected 1 addSheet, got %d", fake.addSheets)
	}
	want := []string{"Username", "MemberId", "WalletAddress", "RoleLabel"}
	if len(fake.header) != 4 {
		t.Fatalf("expected header written, got %v", fake.header)
	}
	for i, h := range want {
		if fake.header[i] != h {
			t.Errorf("header[%d] = %q, want %q", i, fake.header[i], h)
		}
	}

	// Second call is a no-op (cached).
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema (second): %v", err)
	}
	if fake.addSheets != 1 {
		t.Errorf("ensure not cached: %d addSheet calls", fake.addSheets)
	}
}

func TestWalletStore_EnsureSchemaRepairsHeader(t *testing.T) {
	fake := seededFake()
	fake.header = []string{"Username", "MemberId", "Wallet", "Role"} // stale layout
	store, done := newTestStore(t, fake)
	defer done()

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if fake.header[2] != "WalletAddress" || fake.header[3] != "RoleLabel" {
		t.Errorf("header not repaired: %v", fake.header)
	}
}

func TestWalletStore_ListRowPositions(t *testing.T) {
	store, done := newTestStore(t, seededFake())
	defer done()

	records, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.Row != i+2 {
			t.Errorf("record %d: Row = %d, want %d", i, rec.Row, i+2)
		}
	}
	if records[1].MemberID != "1002" || records[1].RoleLabel != "" {
		t.Errorf("unexpected record: %+v", records[1])
	}
}

func TestWalletStore_UpsertRoundTrip(t *testing.T) {
	store, done := newTestStore(t, seededFake())
	defer done()
	ctx := context.Background()

	rec := &domain.WalletRecord{
		MemberID:      "2001",
		DisplayName:   "dave",
		WalletAddress: "0x1111111111111111111111111111111111111111",
		RoleLabel:     "Soldier",
	}

	action, err := store.Upsert(ctx, rec)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if action != domain.UpsertInserted {
		t.Errorf("expected inserted, got %s", action)
	}

	got, err := store.GetByMemberID(ctx, "2001")
	if err != nil {
		t.Fatalf("GetByMemberID: %v", err)
	}
	if got.WalletAddress != rec.WalletAddress || got.DisplayName != "dave" {
		t.Errorf("round trip mismatch: %+v", got)
	}

	// Resubmission with a new address overwrites in place.
	rec.WalletAddress = "0x2222222222222222222222222222222222222222"
	action, err = store.Upsert(ctx, rec)
	if err != nil {
		t.Fatalf("Upsert (update): %v", err)
	}
	if action != domain.UpsertUpdated {
		t.Errorf("expected updated, got %s", action)
	}

	got, err = store.GetByMemberID(ctx, "2001")
	if err != nil {
		t.Fatalf("GetByMemberID after update: %v", err)
	}
	if got.WalletAddress != "0x2222222222222222222222222222222222222222" {
		t.Errorf("expected new address, got %s", got.WalletAddress)
	}

	records, _ := store.List(ctx)
	if len(records) != 4 {
		t.Errorf("update must not append: %d records", len(records))
	}
}

func TestWalletStore_GetByMemberIDNotFound(t *testing.T) {
	store, done := newTestStore(t, seededFake())
	defer done()

	_, err := store.GetByMemberID(context.Background(), "9999")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWalletStore_BatchUpdateRoles(t *testing.T) {
	fake := seededFake()
	store, done := newTestStore(t, fake)
	defer done()

	n, err := store.BatchUpdateRoles(context.Background(), []domain.RoleUpdate{
		{Row: 3, MemberID: "1002", RoleLabel: "Boss"},
		{Row: 4, MemberID: "1003", RoleLabel: ""},
	})
	if err != nil {
		t.Fatalf("BatchUpdateRoles: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 updates, got %d", n)
	}
	if fake.rows[1][3] != "Boss" {
		t.Errorf("row 3 role = %q, want Boss", fake.rows[1][3])
	}
	if fake.rows[2][3] != "" {
		t.Errorf("row 4 role = %q, want empty", fake.rows[2][3])
	}
}

func TestWalletStore_BatchUpdateRolesRejectsHeaderRow(t *testing.T) {
	store, done := newTestStore(t, seededFake())
	defer done()

	_, err := store.BatchUpdateRoles(context.Background(), []domain.RoleUpdate{{Row: 1, RoleLabel: "x"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWalletStore_BatchDeleteDescendingOrder(t *testing.T) {
	fake := seededFake()
	fake.rows = append(fake.rows,
		[]string{"dan", "1004", "0xddd", ""},
		[]string{"erin", "1005", "0xeee", ""},
		[]string{"frank", "1006", "0xfff", ""},
		[]string{"grace", "1007", "0x777", ""},
	)
	store, done := newTestStore(t, fake)
	defer done()

	// Rows 5, 2 and 8 — submission order deliberately scrambled.
	n, err := store.BatchDelete(context.Background(), []domain.RecordRef{
		{Row: 5, MemberID: "1004"},
		{Row: 2, MemberID: "1001"},
		{Row: 8, MemberID: "1007"},
		{Row: 5, MemberID: "1004"}, // duplicate, must be ignored
		{Row: 1, MemberID: ""},     // header, must be filtered
	})
	if err != nil {
		t.Fatalf("BatchDelete: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 deletions, got %d", n)
	}

	// deleteDimension startIndex is row-1: expect 7, 4, 1 in that order.
	want := []int64{7, 4, 1}
	if len(fake.deletes) != len(want) {
		t.Fatalf("expected %d delete requests, got %d", len(want), len(fake.deletes))
	}
	for i, idx := range want {
		if fake.deletes[i] != idx {
			t.Errorf("delete %d: startIndex %d, want %d (descending order violated)", i, fake.deletes[i], idx)
		}
	}

	// Survivors: 1002, 1003, 1005, 1006.
	records, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, rec := range records {
		ids = append(ids, rec.MemberID)
	}
	wantIDs := []string{"1002", "1003", "1005", "1006"}
	if len(ids) != len(wantIDs) {
		t.Fatalf("expected %v, got %v", wantIDs, ids)
	}
	for i := range wantIDs {
		if ids[i] != wantIDs[i] {
			t.Errorf("survivor %d: %s, want %s", i, ids[i], wantIDs[i])
		}
	}
}

func TestWalletStore_BatchDeleteChunks(t *testing.T) {
	fake := &fakeSheets{hasSheet: true, header: []string{"Username", "MemberId", "WalletAddress", "RoleLabel"}}
	for i := 0; i < 120; i++ {
		fake.rows = append(fake.rows, []string{"u", fmt.Sprintf("%d", i), "0x0", ""})
	}
	store, done := newTestStore(t, fake)
	defer done()

	refs := make([]domain.RecordRef, 0, 120)
	for i := 0; i < 120; i++ {
		refs = append(refs, domain.RecordRef{Row: i + 2})
	}

	n, err := store.BatchDelete(context.Background(), refs)
	if err != nil {
		t.Fatalf("BatchDelete: %v", err)
	}
	if n != 120 {
		t.Errorf("expected 120 deletions, got %d", n)
	}
	// 120 rows at 50 per chunk = 3 structural batch calls.
	if fake.batches != 3 {
		t.Errorf("expected 3 batch calls, got %d", fake.batches)
	}
	if len(fake.rows) != 0 {
		t.Errorf("expected empty sheet, %d rows remain", len(fake.rows))
	}
}

func TestWalletStore_BatchDeleteEmpty(t *testing.T) {
	fake := seededFake()
	store, done := newTestStore(t, fake)
	defer done()

	n, err := store.BatchDelete(context.Background(), nil)
	if err != nil {
		t.Fatalf("BatchDelete: %v", err)
	}
	if n != 0 || fake.batches != 0 {
		t.Errorf("empty input must not call the API: n=%d batches=%d", n, fake.batches)
	}
}
