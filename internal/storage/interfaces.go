package storage

import (
	"context"

	"wallet-roster/internal/domain"
)

// WalletStore provides access to the wallet record collection.
//
// Row positions reported by List follow tabular semantics: 1-based,
// header at row 1, data from row 2, and positions shift when earlier
// rows are deleted. Mutations taking row positions must therefore be
// computed from a single List snapshot and applied in one pass.
type WalletStore interface {
	// EnsureSchema verifies the backing table exists with the expected
	// header, creating or repairing it as needed. Idempotent; safe to
	// call before any other operation.
	EnsureSchema(ctx context.Context) error

	// GetByMemberID returns the record for a member. Returns
	// ErrNotFound if the member never submitted a wallet.
	GetByMemberID(ctx context.Context, memberID string) (*domain.WalletRecord, error)

	// List returns every record with its current row position.
	List(ctx context.Context) ([]*domain.WalletRecord, error)

	// Upsert inserts a new record or overwrites the existing row for
	// the same member. Not atomic against concurrent upserts of the
	// same key; last writer wins.
	Upsert(ctx context.Context, rec *domain.WalletRecord) (domain.UpsertAction, error)

	// BatchUpdateRoles rewrites the role cell of each referenced
	// record in one batched call. Returns the number of updates
	// applied; the whole batch either succeeds or the error propagates.
	BatchUpdateRoles(ctx context.Context, updates []domain.RoleUpdate) (int, error)

	// BatchDelete removes the referenced records. Row-positional
	// backends process positions highest-first so earlier deletions
	// cannot shift later targets. Returns the number of rows deleted.
	BatchDelete(ctx context.Context, refs []domain.RecordRef) (int, error)
}

// ReconcileAuditStore persists per-record reconciliation outcomes for
// later analysis. Best-effort from the engine's point of view.
type ReconcileAuditStore interface {
	InsertOutcomes(ctx context.Context, outcomes []*domain.ReconcileOutcome) error
}
