// Package roles resolves a member's single priority role from an
// ordered list of candidate roles.
package roles

import (
	"fmt"

	"wallet-roster/internal/domain"
)

// Role pairs a guild role ID with the label written to the store.
type Role struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// PriorityList is an ordered role list, highest priority first.
// Immutable after construction; shared freely across goroutines.
type PriorityList struct {
	entries []Role
}

// NewPriorityList validates and copies the given roles. Insertion
// order is priority order: index 0 wins over everything after it.
func NewPriorityList(entries []Role) (*PriorityList, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("priority list is empty")
	}

	seen := make(map[string]struct{}, len(entries))
	for i, r := range entries {
		if r.ID == "" {
			return nil, fmt.Errorf("priority list entry %d: missing role id", i)
		}
		if r.Label == "" {
			return nil, fmt.Errorf("priority list entry %d (%s): missing label", i, r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("priority list entry %d: duplicate role id %s", i, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	list := make([]Role, len(entries))
	copy(list, entries)
	return &PriorityList{entries: list}, nil
}

// Resolve returns the label of the highest-priority role the member
// holds, or the empty string when none match. Pure and deterministic;
// an empty held set always resolves to the empty label.
func (l *PriorityList) Resolve(held domain.HeldRoles) string {
	for _, r := range l.entries {
		if held.Has(r.ID) {
			return r.Label
		}
	}
	return ""
}

// HoldsAny reports whether the member holds at least one priority role.
func (l *PriorityList) HoldsAny(held domain.HeldRoles) bool {
	return l.Resolve(held) != ""
}

// Len returns the number of entries.
func (l *PriorityList) Len() int {
	return len(l.entries)
}

// Labels returns the labels in priority order.
func (l *PriorityList) Labels() []string {
	labels := make([]string, len(l.entries))
	for i, r := range l.entries {
		labels[i] = r.Label
	}
	return labels
}
