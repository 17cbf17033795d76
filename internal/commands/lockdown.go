package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"go-threatguard/internal/lockdown"
	"go-threatguard/internal/models"
)

func (h *Handler) handleLockdown(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if ok, err := h.authorize(ctx, s, i, accessAdmin, adminDenied); !ok {
		return err
	}

	reason := "Manual lockdown"
	if opt := option(i, "reason"); opt != nil && opt.StringValue() != "" {
		reason = opt.StringValue()
	}
	reason = fmt.Sprintf("%s (by %s)", reason, i.Member.User.Username)

	if err := deferResponse(s, i); err != nil {
		return err
	}

	locked, err := h.lockdowns.Trigger(ctx, i.GuildID, reason, true)
	if err != nil {
		return editEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "Lockdown Failed",
			Description: err.Error(),
			Color:       models.PunishmentLockdown.Color(),
		})
	}
	if !locked {
		return editEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "Already Locked",
			Description: "This server is already in lockdown. Use `/unlock` to restore it.",
			Color:       0x2B2D31,
		})
	}

	if h.threatLog != nil {
		if cfg, err := h.configs.CommunityConfig(ctx, i.GuildID); err == nil {
			h.threatLog.Record(ctx, models.ThreatLogEntry{
				Community:  i.GuildID,
				Actor:      i.Member.User.ID,
				ActionType: models.ActionTypeManual,
				Punishment: models.PunishmentLockdown.String(),
				Applied:    "applied",
				Reason:     reason,
				Timestamp:  time.Now(),
			}, cfg.LogChannelID)
		}
	}

	return editEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🔒 Server Locked",
		Description: reason,
		Color:       models.PunishmentLockdown.Color(),
	})
}

func (h *Handler) handleUnlock(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if ok, err := h.authorize(ctx, s, i, accessAdmin, adminDenied); !ok {
		return err
	}

	if err := deferResponse(s, i); err != nil {
		return err
	}

	unlocked, err := h.lockdowns.Unlock(ctx, i.GuildID, true)
	switch {
	case err != nil:
		return editEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "Unlock Failed",
			Description: fmt.Sprintf("%v\nThe server stays locked; run `/unlock` again.", err),
			Color:       models.PunishmentLockdown.Color(),
		})
	case !unlocked:
		return editEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "Not Locked",
			Description: "There is no lockdown to lift.",
			Color:       0x2B2D31,
		})
	}
	return editEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🔓 Server Unlocked",
		Description: "Channel permissions were restored to their state before the lockdown.",
		Color:       0x57F287,
	})
}

func lockdownSummary(st *lockdown.Status) string {
	switch st.State {
	case lockdown.StateLocked, lockdown.StateLocking:
		text := fmt.Sprintf("**%s** (%d channels)", st.State, len(st.Record.Mapping))
		if st.Record.Reason != "" {
			text += "\n" + st.Record.Reason
		}
		if !st.Record.AutoUnlockAt.IsZero() {
			text += fmt.Sprintf("\nAuto unlock <t:%d:R>", st.Record.AutoUnlockAt.Unix())
		}
		return text
	default:
		return st.State.String()
	}
}
