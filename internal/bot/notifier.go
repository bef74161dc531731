package bot

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"wallet-roster/internal/reconcile"
)

// DMNotifier delivers pass results as Discord direct messages.
type DMNotifier struct {
	session *discordgo.Session
	logger  *log.Logger
}

// NewDMNotifier creates a notifier backed by a Discord session.
func NewDMNotifier(session *discordgo.Session, logger *log.Logger) *DMNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &DMNotifier{session: session, logger: logger}
}

// Compile-time interface check.
var _ reconcile.Notifier = (*DMNotifier)(nil)

// Notify opens (or reuses) the DM channel with the recipient and sends
// the message.
func (n *DMNotifier) Notify(ctx context.Context, recipient, message string) error {
	channel, err := n.session.UserChannelCreate(recipient, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel with %s: %w", recipient, err)
	}

	if _, err := n.session.ChannelMessageSend(channel.ID, message, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm to %s: %w", recipient, err)
	}

	return nil
}
