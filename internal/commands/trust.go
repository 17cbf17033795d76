package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"go-threatguard/internal/database"
)

// trustTarget returns the user or role picked in the command options.
func trustTarget(s *discordgo.Session, i *discordgo.InteractionCreate) (id, name string, kind database.TrustKind, err error) {
	if opt := option(i, "user"); opt != nil {
		u := opt.UserValue(s)
		return u.ID, u.Username, database.TrustUser, nil
	}
	if opt := option(i, "role"); opt != nil {
		r := opt.RoleValue(s, i.GuildID)
		return r.ID, r.Name, database.TrustRole, nil
	}
	return "", "", "", fmt.Errorf("no user or role specified")
}

func (h *Handler) handleTrust(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if ok, err := h.authorize(ctx, s, i, accessOwner, "Only the server owner can change the trusted list."); !ok {
		return err
	}

	id, name, kind, err := trustTarget(s, i)
	if err != nil {
		return err
	}
	if err := h.trust.Add(ctx, i.GuildID, id, kind, i.Member.User.ID); err != nil {
		return err
	}

	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Trusted",
		Description: fmt.Sprintf("**%s** (%s) is now exempt from enforcement.", name, kind),
		Color:       0x57F287,
	}, true)
}

func (h *Handler) handleUntrust(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if ok, err := h.authorize(ctx, s, i, accessOwner, "Only the server owner can change the trusted list."); !ok {
		return err
	}

	id, name, kind, err := trustTarget(s, i)
	if err != nil {
		return err
	}
	removed, err := h.trust.Remove(ctx, i.GuildID, id)
	if err != nil {
		return err
	}

	desc := fmt.Sprintf("**%s** (%s) is no longer trusted.", name, kind)
	if !removed {
		desc = fmt.Sprintf("**%s** (%s) was not on the trusted list.", name, kind)
	}
	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Untrusted",
		Description: desc,
		Color:       0x2B2D31,
	}, true)
}
