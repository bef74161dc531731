package directory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"wallet-roster/internal/domain"
)

// GuildDirectory resolves members through the Discord guild member API.
type GuildDirectory struct {
	session *discordgo.Session
	guildID string
	logger  *log.Logger
}

// GuildDirectoryOptions configures a GuildDirectory.
type GuildDirectoryOptions struct {
	Session *discordgo.Session
	GuildID string
	Logger  *log.Logger
}

// NewGuildDirectory creates a directory backed by a Discord session.
func NewGuildDirectory(opts GuildDirectoryOptions) (*GuildDirectory, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if opts.GuildID == "" {
		return nil, fmt.Errorf("guild id is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &GuildDirectory{
		session: opts.Session,
		guildID: opts.GuildID,
		logger:  logger,
	}, nil
}

// Compile-time interface check.
var _ Directory = (*GuildDirectory)(nil)

// Unknown member error code from the Discord API.
const errCodeUnknownMember = 10007

// Member fetches a guild member. Returns ErrMemberNotFound when the
// member has left the guild.
func (d *GuildDirectory) Member(ctx context.Context, memberID string) (*Member, error) {
	m, err := d.session.GuildMember(d.guildID, memberID, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownMember(err) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("fetch guild member %s: %w", memberID, err)
	}

	return &Member{
		ID:          memberID,
		DisplayName: displayName(m),
		Roles:       domain.NewHeldRoles(m.Roles),
	}, nil
}

// isUnknownMember reports whether the API said the member does not exist.
func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == errCodeUnknownMember {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// displayName prefers the guild nickname over the account username.
func displayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User != nil {
		return m.User.Username
	}
	return ""
}
