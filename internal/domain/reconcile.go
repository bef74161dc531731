package domain

import (
	"fmt"
	"time"
)

// Mode selects the reconciliation policy for a pass.
type Mode string

const (
	// ModeRefresh re-resolves every record's role and removes members
	// who left the guild.
	ModeRefresh Mode = "refresh"

	// ModeFill resolves roles only for records whose role label is
	// currently blank. It never deletes.
	ModeFill Mode = "fill"

	// ModePrune deletes records for members who left the guild or hold
	// no priority role. It never updates.
	ModePrune Mode = "prune"
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	return string(m)
}

// IsValid checks if the mode is a valid value.
func (m Mode) IsValid() bool {
	return m == ModeRefresh || m == ModeFill || m == ModePrune
}

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown reconcile mode %q (want refresh, fill or prune)", s)
	}
	return m, nil
}

// Summary contains the aggregate counts of one reconciliation pass.
type Summary struct {
	Mode     Mode
	Checked  int // records examined
	Changed  int // role cells rewritten
	Deleted  int // rows removed
	Errors   int // per-item lookup failures coerced to a safe outcome
	Duration time.Duration
}

// OutcomeAction is the per-record result of a reconciliation check.
type OutcomeAction string

const (
	ActionUpdate OutcomeAction = "update"
	ActionDelete OutcomeAction = "delete"
	ActionNone   OutcomeAction = "none"
	ActionSkip   OutcomeAction = "skip"
)

// ReconcileOutcome records what a single pass decided for a single
// member. Persisted to the audit trail.
type ReconcileOutcome struct {
	PassID      string
	Mode        Mode
	MemberID    string
	DisplayName string
	OldRole     string
	NewRole     string
	Action      OutcomeAction
	LookupError bool  // the directory lookup failed and the action is the mode's fail-safe
	OccurredAt  int64 // Unix timestamp in milliseconds
}
