package postgres

import (
	"context"
	"fmt"

	"wallet-roster/internal/domain"
	"wallet-roster/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
//
// Records are keyed by member_id, so row positions reported by List
// are synthetic: the stable listing order plus the header offset. Batch
// operations address records by MemberID and ignore the Row field.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// EnsureSchema is a no-op; schema is managed by migrations.
func (s *WalletStore) EnsureSchema(_ context.Context) error {
	return nil
}

// GetByMemberID retrieves a record by member id. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByMemberID(ctx context.Context, memberID string) (*domain.WalletRecord, error) {
	if memberID == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT member_id, display_name, wallet_address, role_label
		FROM wallet_records
		WHERE member_id = $1
	`

	var rec domain.WalletRecord
	err := s.pool.QueryRow(ctx, query, memberID).Scan(
		&rec.MemberID,
		&rec.DisplayName,
		&rec.WalletAddress,
		&rec.RoleLabel,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet record by member id: %w", err)
	}
	return &rec, nil
}

// List retrieves all records in insertion order with synthetic row positions.
func (s *WalletStore) List(ctx context.Context) ([]*domain.WalletRecord, error) {
	query := `
		SELECT member_id, display_name, wallet_address, role_label
		FROM wallet_records
		ORDER BY created_at ASC, member_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list wallet records: %w", err)
	}
	defer rows.Close()

	var records []*domain.WalletRecord
	for rows.Next() {
		var rec domain.WalletRecord
		err := rows.Scan(
			&rec.MemberID,
			&rec.DisplayName,
			&rec.WalletAddress,
			&rec.RoleLabel,
		)
		if err != nil {
			return nil, fmt.Errorf("scan wallet record row: %w", err)
		}
		rec.Row = len(records) + domain.HeaderOffset
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet record rows: %w", err)
	}

	return records, nil
}

// Upsert inserts a record or overwrites the member's existing one.
func (s *WalletStore) Upsert(ctx context.Context, rec *domain.WalletRecord) (domain.UpsertAction, error) {
	if rec == nil || rec.MemberID == "" {
		return "", storage.ErrInvalidInput
	}

	query := `
		INSERT INTO wallet_records (member_id, display_name, wallet_address, role_label)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (member_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			wallet_address = EXCLUDED.wallet_address,
			role_label = EXCLUDED.role_label,
			updated_at = now()
		RETURNING (xmax = 0)
	`

	var inserted bool
	err := s.pool.QueryRow(ctx, query,
		rec.MemberID,
		rec.DisplayName,
		rec.WalletAddress,
		rec.RoleLabel,
	).Scan(&inserted)
	if err != nil {
		return "", fmt.Errorf("upsert wallet record: %w", err)
	}

	if inserted {
		return domain.UpsertInserted, nil
	}
	return domain.UpsertUpdated, nil
}

// BatchUpdateRoles rewrites role labels keyed by member id.
func (s *WalletStore) BatchUpdateRoles(ctx context.Context, updates []domain.RoleUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	query := `
		UPDATE wallet_records
		SET role_label = $2, updated_at = now()
		WHERE member_id = $1
	`

	updated := 0
	for _, u := range updates {
		if u.MemberID == "" {
			return updated, storage.ErrInvalidInput
		}
		tag, err := s.pool.Exec(ctx, query, u.MemberID, u.RoleLabel)
		if err != nil {
			return updated, fmt.Errorf("update role for member %s: %w", u.MemberID, err)
		}
		updated += int(tag.RowsAffected())
	}
	return updated, nil
}

// BatchDelete removes records keyed by member id in a single statement.
func (s *WalletStore) BatchDelete(ctx context.Context, refs []domain.RecordRef) (int, error) {
	if len(refs) == 0 {
		return 0, nil
	}

	seen := make(map[string]struct{}, len(refs))
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.MemberID == "" {
			continue
		}
		if _, dup := seen[ref.MemberID]; dup {
			continue
		}
		seen[ref.MemberID] = struct{}{}
		ids = append(ids, ref.MemberID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM wallet_records WHERE member_id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("batch delete wallet records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
