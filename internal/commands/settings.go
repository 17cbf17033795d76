package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// handleLogs handles the /logs command
func (h *Handler) handleLogs(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if ok, err := h.authorize(ctx, s, i, accessAdmin, adminDenied); !ok {
		return err
	}

	opt := option(i, "channel")
	if opt == nil {
		return fmt.Errorf("no channel specified")
	}
	channelID := opt.ChannelValue(s).ID

	cfg, err := h.configs.CommunityConfig(ctx, i.GuildID)
	if err != nil {
		return err
	}
	cfg.LogChannelID = channelID
	if err := h.configs.UpsertConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	// Send test message to the log channel
	_, err = s.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Title:       "✅ Security Logging Enabled",
		Description: "This channel will now receive security alerts.",
		Color:       0x57F287,
	})
	if err != nil {
		return fmt.Errorf("failed to send test message (check bot permissions): %w", err)
	}

	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "✅ Log Channel Configured",
		Description: fmt.Sprintf("Security alerts will be sent to <#%s>", channelID),
		Color:       0x57F287,
	}, true)
}

// handleProtection handles the /protection command
func (h *Handler) handleProtection(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if ok, err := h.authorize(ctx, s, i, accessOwner, "Only the server owner can turn protection on or off."); !ok {
		return err
	}

	cfg, err := h.configs.CommunityConfig(ctx, i.GuildID)
	if err != nil {
		return err
	}
	if opt := option(i, "anti_nuke"); opt != nil {
		cfg.AntiNuke = opt.BoolValue()
	}
	if opt := option(i, "anti_raid"); opt != nil {
		cfg.AntiRaid = opt.BoolValue()
	}
	if err := h.configs.UpsertConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Protection Updated",
		Description: fmt.Sprintf("Anti-nuke %s · Anti-raid %s", onOff(cfg.AntiNuke), onOff(cfg.AntiRaid)),
		Color:       0x2B2D31,
	}, true)
}
