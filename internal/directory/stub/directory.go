package stub

import (
	"context"
	"sync"

	"wallet-roster/internal/directory"
)

// StubDirectory returns fixed in-memory members for testing.
// Implements directory.Directory interface.
type StubDirectory struct {
	mu      sync.Mutex
	members map[string]*directory.Member
	errs    map[string]error
	lookups int
}

// NewStubDirectory creates a stub directory with the given members.
func NewStubDirectory(members []*directory.Member) *StubDirectory {
	byID := make(map[string]*directory.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	return &StubDirectory{
		members: byID,
		errs:    make(map[string]error),
	}
}

// Compile-time interface check.
var _ directory.Directory = (*StubDirectory)(nil)

// FailWith makes lookups of memberID return err.
func (d *StubDirectory) FailWith(memberID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs[memberID] = err
}

// Member returns the configured member, a configured error, or
// directory.ErrMemberNotFound.
func (d *StubDirectory) Member(_ context.Context, memberID string) (*directory.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lookups++
	if err, ok := d.errs[memberID]; ok {
		return nil, err
	}
	m, ok := d.members[memberID]
	if !ok {
		return nil, directory.ErrMemberNotFound
	}
	copy := *m
	return &copy, nil
}

// Lookups reports how many Member calls have been made.
func (d *StubDirectory) Lookups() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups
}
