package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"wallet-roster/internal/domain"
	"wallet-roster/internal/storage"
	"wallet-roster/internal/wallet"
)

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	var err error
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case cmdSubmitSetup:
			err = b.handleSubmitSetup(s, i)
		case cmdWalletAudit:
			err = b.handleWalletAudit(ctx, s, i)
		}
	case discordgo.InteractionMessageComponent:
		switch i.MessageComponentData().CustomID {
		case buttonSubmitWallet:
			err = b.handleSubmitButton(s, i)
		case buttonCheckStatus:
			err = b.handleCheckStatus(ctx, s, i)
		}
	case discordgo.InteractionModalSubmit:
		if i.ModalSubmitData().CustomID == modalWallet {
			err = b.handleWalletModal(ctx, s, i)
		}
	}

	if err != nil {
		b.logger.Printf("bot: interaction failed: %v", err)
		b.replyError(s, i)
	}
}

// handleSubmitSetup posts the public embed with the submission buttons.
func (b *Bot) handleSubmitSetup(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{Description: "Submit your wallet", Color: 0x2b2d31},
			},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							CustomID: buttonSubmitWallet,
							Label:    "Submit Wallet",
							Style:    discordgo.SuccessButton,
						},
						discordgo.Button{
							CustomID: buttonCheckStatus,
							Label:    "Check Status",
							Style:    discordgo.PrimaryButton,
						},
					},
				},
			},
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
}

// handleWalletAudit acknowledges immediately and fires the pass in the
// background; the outcome arrives as a direct message.
func (b *Bot) handleWalletAudit(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return fmt.Errorf("wallet-audit: missing mode option")
	}
	mode, err := domain.ParseMode(data.Options[0].StringValue())
	if err != nil {
		return b.replyEphemeral(s, i, err.Error())
	}

	userID := interactionUserID(i)
	if err := b.engine.RunAsync(ctx, mode, userID); err != nil {
		return err
	}

	return b.replyEphemeral(s, i,
		fmt.Sprintf("Started a %s pass. You will get a DM when it finishes.", mode))
}

// handleSubmitButton opens the wallet address modal.
func (b *Bot) handleSubmitButton(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: modalWallet,
			Title:    "Submit your EVM wallet",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    inputWalletField,
							Label:       "EVM wallet address (0x...)",
							Style:       discordgo.TextInputShort,
							Placeholder: "0x...",
							Required:    true,
							MaxLength:   100,
						},
					},
				},
			},
		},
	})
}

// handleCheckStatus shows the member their stored record.
func (b *Bot) handleCheckStatus(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := b.deferEphemeral(s, i); err != nil {
		return err
	}

	userID := interactionUserID(i)
	rec, err := b.wallet.Lookup(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return b.editReply(s, i, "You have not submitted a wallet yet.")
	}
	if err != nil {
		return fmt.Errorf("lookup wallet for %s: %w", userID, err)
	}

	embed := &discordgo.MessageEmbed{
		Title: "Wallet Submission",
		Color: 0x2ecc71,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Discord Username", Value: orNA(rec.DisplayName), Inline: true},
			{Name: "Discord ID", Value: rec.MemberID, Inline: true},
			{Name: "EVM Wallet", Value: orNA(rec.WalletAddress)},
			{Name: "Role", Value: orNA(rec.RoleLabel), Inline: true},
		},
	}
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	return err
}

// handleWalletModal stores the submitted address.
func (b *Bot) handleWalletModal(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	// Defer immediately to avoid the interaction timeout on slow stores.
	if err := b.deferEphemeral(s, i); err != nil {
		return err
	}

	address := modalInputValue(i.ModalSubmitData(), inputWalletField)
	userID := interactionUserID(i)
	displayName := interactionDisplayName(i)

	action, err := b.wallet.SubmitOrUpdate(ctx, userID, displayName, address)
	if errors.Is(err, wallet.ErrInvalidAddress) {
		return b.editReply(s, i, "Invalid EVM address. Please submit a 0x... address.")
	}
	if err != nil {
		return fmt.Errorf("submit wallet for %s: %w", userID, err)
	}

	verb := "saved"
	if action == domain.UpsertUpdated {
		verb = "updated"
	}
	return b.editReply(s, i, fmt.Sprintf("Wallet %s successfully.", verb))
}

func (b *Bot) replyEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) deferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) editReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	return err
}

// replyError sends a generic failure message on whichever channel the
// interaction still accepts.
func (b *Bot) replyError(s *discordgo.Session, i *discordgo.InteractionCreate) {
	const msg = "There was an error. Please try again."
	if err := b.replyEphemeral(s, i, msg); err != nil {
		if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
			Content: ptr(msg),
		}); err != nil {
			b.logger.Printf("bot: error reply failed: %v", err)
		}
	}
}

// interactionUserID works for both guild and DM interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// interactionDisplayName prefers the guild nickname.
func interactionDisplayName(i *discordgo.InteractionCreate) string {
	if i.Member != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		if i.Member.User != nil {
			return i.Member.User.Username
		}
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}

// modalInputValue finds a text input value by custom id.
func modalInputValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == customID {
				return input.Value
			}
		}
	}
	return ""
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func ptr[T any](v T) *T {
	return &v
}
