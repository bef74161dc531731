// Package memory provides an in-memory wallet store used in tests and
// behind the --use-memory flag. It keeps sheet-faithful row semantics:
// positions are 1-based with a header offset, and deleting a row
// shifts every later row up by one.
package memory

import (
	"context"
	"sort"
	"sync"

	"wallet-roster/internal/domain"
	"wallet-roster/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu   sync.RWMutex
	rows []domain.WalletRecord // index i = sheet row i+2
}

// NewWalletStore creates an empty in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// EnsureSchema is a no-op for the in-memory backend.
func (s *WalletStore) EnsureSchema(_ context.Context) error {
	return nil
}

// Seed replaces the store contents. Test helper.
func (s *WalletStore) Seed(records []domain.WalletRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows[:0], records...)
}

// GetByMemberID returns the first record matching the key.
func (s *WalletStore) GetByMemberID(_ context.Context, memberID string) (*domain.WalletRecord, error) {
	if memberID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, rec := range s.rows {
		if rec.MemberID == memberID {
			out := rec
			out.Row = i + domain.HeaderOffset
			return &out, nil
		}
	}
	return nil, storage.ErrNotFound
}

// List returns copies of all records with current row positions.
func (s *WalletStore) List(_ context.Context) ([]*domain.WalletRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.WalletRecord, len(s.rows))
	for i, rec := range s.rows {
		cp := rec
		cp.Row = i + domain.HeaderOffset
		out[i] = &cp
	}
	return out, nil
}

// Upsert appends a new record or overwrites the member's existing row.
func (s *WalletStore) Upsert(_ context.Context, rec *domain.WalletRecord) (domain.UpsertAction, error) {
	if rec == nil || rec.MemberID == "" {
		return "", storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	cp.Row = 0
	for i := range s.rows {
		if s.rows[i].MemberID == rec.MemberID {
			s.rows[i] = cp
			return domain.UpsertUpdated, nil
		}
	}
	s.rows = append(s.rows, cp)
	return domain.UpsertInserted, nil
}

// BatchUpdateRoles rewrites role labels by row position.
func (s *WalletStore) BatchUpdateRoles(_ context.Context, updates []domain.RoleUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		idx := u.Row - domain.HeaderOffset
		if idx < 0 || idx >= len(s.rows) {
			return 0, storage.ErrInvalidInput
		}
	}
	for _, u := range updates {
		s.rows[u.Row-domain.HeaderOffset].RoleLabel = u.RoleLabel
	}
	return len(updates), nil
}

// BatchDelete removes rows by position, highest-first so earlier
// removals cannot shift later targets.
func (s *WalletStore) BatchDelete(_ context.Context, refs []domain.RecordRef) (int, error) {
	if len(refs) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

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
	for _, row := range rows {
		idx := row - domain.HeaderOffset
		if idx < 0 || idx >= len(s.rows) {
			continue
		}
		s.rows = append(s.rows[:idx], s.rows[idx+1:]...)
		deleted++
	}
	return deleted, nil
}

// AuditStore is an in-memory ReconcileAuditStore collecting outcomes.
type AuditStore struct {
	mu       sync.Mutex
	outcomes []*domain.ReconcileOutcome
}

// NewAuditStore creates an empty in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Compile-time interface check.
var _ storage.ReconcileAuditStore = (*AuditStore)(nil)

// InsertOutcomes appends copies of the given outcomes.
func (s *AuditStore) InsertOutcomes(_ context.Context, outcomes []*domain.ReconcileOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range outcomes {
		cp := *o
		s.outcomes = append(s.outcomes, &cp)
	}
	return nil
}

// Outcomes returns everything recorded so far.
func (s *AuditStore) Outcomes() []*domain.ReconcileOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.ReconcileOutcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}
