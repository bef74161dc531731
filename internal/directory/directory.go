// Package directory resolves guild members and the roles they hold.
package directory

import (
	"context"
	"errors"

	"wallet-roster/internal/domain"
)

// ErrMemberNotFound indicates the member has left or never joined the guild.
var ErrMemberNotFound = errors.New("member not found in guild")

// Member is a guild member with the role ids they currently hold.
type Member struct {
	ID          string
	DisplayName string
	Roles       domain.HeldRoles
}

// Directory looks up guild members by id.
//
// Implementations return ErrMemberNotFound for members no longer in the
// guild; any other error means the lookup itself failed and the caller
// must not treat the member as absent.
type Directory interface {
	Member(ctx context.Context, memberID string) (*Member, error)
}
