package clickhouse

import (
	"context"
	"fmt"

	"wallet-roster/internal/domain"
	"wallet-roster/internal/storage"
)

// ReconcileAuditStore implements storage.ReconcileAuditStore using ClickHouse.
type ReconcileAuditStore struct {
	conn *Conn
}

// NewReconcileAuditStore creates a new ReconcileAuditStore.
func NewReconcileAuditStore(conn *Conn) *ReconcileAuditStore {
	return &ReconcileAuditStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ReconcileAuditStore = (*ReconcileAuditStore)(nil)

// InsertOutcomes appends per-member outcomes of a reconciliation pass.
func (s *ReconcileAuditStore) InsertOutcomes(ctx context.Context, outcomes []*domain.ReconcileOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO wallet_reconcile_outcomes (
			pass_id, mode, member_id, display_name, old_role, new_role,
			action, lookup_error, occurred_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range outcomes {
		err = batch.Append(
			o.PassID, o.Mode.String(), o.MemberID, o.DisplayName,
			o.OldRole, o.NewRole, string(o.Action),
			o.LookupError, uint64(o.OccurredAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPassID retrieves all outcomes of a pass, ordered by member id.
func (s *ReconcileAuditStore) GetByPassID(ctx context.Context, passID string) ([]*domain.ReconcileOutcome, error) {
	query := `
		SELECT pass_id, mode, member_id, display_name, old_role, new_role,
		       action, lookup_error, occurred_at
		FROM wallet_reconcile_outcomes
		WHERE pass_id = ?
		ORDER BY member_id ASC
	`

	rows, err := s.conn.Query(ctx, query, passID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes by pass id: %w", err)
	}
	defer rows.Close()

	var outcomes []*domain.ReconcileOutcome
	for rows.Next() {
		var (
			o          domain.ReconcileOutcome
			modeStr    string
			actionStr  string
			occurredAt uint64
		)
		err := rows.Scan(
			&o.PassID, &modeStr, &o.MemberID, &o.DisplayName,
			&o.OldRole, &o.NewRole, &actionStr, &o.LookupError, &occurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}

		mode, err := domain.ParseMode(modeStr)
		if err != nil {
			return nil, fmt.Errorf("parse stored mode %q: %w", modeStr, err)
		}
		o.Mode = mode
		o.Action = domain.OutcomeAction(actionStr)
		o.OccurredAt = int64(occurredAt)
		outcomes = append(outcomes, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}

	return outcomes, nil
}
