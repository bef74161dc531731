package domain

// HeldRoles is the set of role IDs a member currently holds.
// All callers construct it through NewHeldRoles so that the shape of
// the upstream role payload never leaks past the adapter boundary.
type HeldRoles map[string]struct{}

// NewHeldRoles builds a HeldRoles set from a raw role ID slice.
func NewHeldRoles(ids []string) HeldRoles {
	held := make(HeldRoles, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		held[id] = struct{}{}
	}
	return held
}

// Has reports whether the member holds the given role ID.
func (h HeldRoles) Has(id string) bool {
	_, ok := h[id]
	return ok
}
