package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"go-threatguard/internal/platform"
)

// Directory resolves the guild and member data commands are authorized
// against. bot.Session satisfies it.
type Directory interface {
	SelfID() string
	FetchCommunity(ctx context.Context, community string) (*platform.Community, error)
	FetchMember(ctx context.Context, community, actor string) (*platform.Member, error)
}

type access int

const (
	accessNone access = iota
	// accessAdmin is an administrator ranked above the bot.
	accessAdmin
	accessOwner
)

const adminDenied = "You need Administrator permission and a role higher than the bot."

// accessOf ranks a caller. Administrators must outrank the bot's highest
// role; when either side has no positioned role the permission alone counts.
func accessOf(c *platform.Community, caller string, callerRoles, botRoles []string) access {
	if caller == c.OwnerID {
		return accessOwner
	}
	if c.Permissions(callerRoles)&platform.PermAdministrator == 0 {
		return accessNone
	}
	top, botTop := c.HighestPosition(callerRoles), c.HighestPosition(botRoles)
	if top >= 0 && botTop >= 0 && top <= botTop {
		return accessNone
	}
	return accessAdmin
}

// authorize checks that the caller holds at least need. A refused caller
// has already been answered when it returns false with a nil error.
func (h *Handler) authorize(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, need access, denied string) (bool, error) {
	community, err := h.directory.FetchCommunity(ctx, i.GuildID)
	if err != nil {
		return false, fmt.Errorf("failed to get guild: %w", err)
	}

	var botRoles []string
	if need < accessOwner {
		self, err := h.directory.FetchMember(ctx, i.GuildID, h.directory.SelfID())
		if err != nil {
			return false, fmt.Errorf("failed to get bot member: %w", err)
		}
		botRoles = self.Roles
	}

	if accessOf(community, i.Member.User.ID, i.Member.Roles, botRoles) >= need {
		return true, nil
	}
	return false, respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Access Denied",
		Description: denied,
		Color:       0x2B2D31,
	}, true)
}
