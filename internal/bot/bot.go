// Package bot wires the Discord interaction surface to the wallet
// service and the reconciliation engine. No engine logic lives here.
package bot

import (
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"wallet-roster/internal/reconcile"
	"wallet-roster/internal/wallet"
)

// Interaction custom ids.
const (
	cmdSubmitSetup = "submit-wallet-setup"
	cmdWalletAudit = "wallet-audit"

	buttonSubmitWallet = "submit_wallet"
	buttonCheckStatus  = "check_status"

	modalWallet      = "wallet_modal"
	inputWalletField = "wallet_address"
)

// interactionTimeout bounds the work done inside a single handler.
const interactionTimeout = 15 * time.Second

// Options configures a Bot.
type Options struct {
	Session *discordgo.Session
	Wallet  *wallet.Service
	Engine  *reconcile.Engine

	// GuildID scopes command registration to one guild. Empty registers
	// global commands (may take up to an hour to appear).
	GuildID string

	Logger *log.Logger
}

// Bot owns the Discord session lifecycle and interaction routing.
type Bot struct {
	session *discordgo.Session
	wallet  *wallet.Service
	engine  *reconcile.Engine
	guildID string
	logger  *log.Logger
}

// New creates a Bot. The session must not be opened yet.
func New(opts Options) (*Bot, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if opts.Wallet == nil {
		return nil, fmt.Errorf("wallet service is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("reconcile engine is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Bot{
		session: opts.Session,
		wallet:  opts.Wallet,
		engine:  opts.Engine,
		guildID: opts.GuildID,
		logger:  logger,
	}, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start() error {
	b.session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentGuildMembers
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		b.session.Close()
		return err
	}

	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Printf("bot: logged in as %s#%s", r.User.Username, r.User.Discriminator)
}

func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	_, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, commandDefinitions())
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	if b.guildID != "" {
		b.logger.Printf("bot: guild commands registered")
	} else {
		b.logger.Printf("bot: global commands registered")
	}
	return nil
}

// commandDefinitions returns the slash commands the bot exposes.
func commandDefinitions() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)

	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdSubmitSetup,
			Description: "Post the wallet submission message in this channel",
		},
		{
			Name:                     cmdWalletAudit,
			Description:              "Run a roster reconciliation pass in the background",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "refresh re-resolves all roles, fill only blank ones, prune removes stale rows",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "refresh", Value: "refresh"},
						{Name: "fill", Value: "fill"},
						{Name: "prune", Value: "prune"},
					},
				},
			},
		},
	}
}
