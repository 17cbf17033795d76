package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"go-threatguard/internal/config"
	"go-threatguard/internal/database"
	"go-threatguard/internal/forensics"
	"go-threatguard/internal/lockdown"
	"go-threatguard/internal/logging"
	"go-threatguard/internal/models"
	"go-threatguard/internal/watchdog"
)

const commandTimeout = 30 * time.Second

// Lockdowns is the part of lockdown.Manager driven by commands.
type Lockdowns interface {
	Trigger(ctx context.Context, community, reason string, manual bool) (bool, error)
	Unlock(ctx context.Context, community string, manual bool) (bool, error)
	Status(ctx context.Context, community string) (*lockdown.Status, error)
}

// Trust is the part of trust.Registry driven by commands.
type Trust interface {
	Add(ctx context.Context, community, target string, kind database.TrustKind, addedBy string) error
	Remove(ctx context.Context, community, target string) (bool, error)
}

// Configs reads and writes community configs.
type Configs interface {
	config.Source
	UpsertConfig(ctx context.Context, cfg *config.CommunityConfig) error
	RecentThreatLogs(ctx context.Context, communityID string, limit int) ([]*models.ThreatLogEntry, error)
}

// Handler manages all command interactions
type Handler struct {
	directory Directory
	lockdowns Lockdowns
	trust     Trust
	configs   Configs
	threatLog *forensics.ThreatLog
	watchdog  *watchdog.Watchdog
}

func NewHandler(directory Directory, lockdowns Lockdowns, trust Trust, configs Configs, threatLog *forensics.ThreatLog, wd *watchdog.Watchdog) *Handler {
	return &Handler{
		directory: directory,
		lockdowns: lockdowns,
		trust:     trust,
		configs:   configs,
		threatLog: threatLog,
		watchdog:  wd,
	}
}

// HandleInteraction routes slash commands to their handlers
func (h *Handler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || i.GuildID == "" || i.Member == nil {
		return
	}
	data := i.ApplicationCommandData()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch data.Name {
	case "lockdown":
		err = h.handleLockdown(ctx, s, i)
	case "unlock":
		err = h.handleUnlock(ctx, s, i)
	case "status":
		err = h.handleStatus(ctx, s, i)
	case "trust":
		err = h.handleTrust(ctx, s, i)
	case "untrust":
		err = h.handleUntrust(ctx, s, i)
	case "logs":
		err = h.handleLogs(ctx, s, i)
	case "protection":
		err = h.handleProtection(ctx, s, i)
	default:
		err = fmt.Errorf("unknown command: %s", data.Name)
	}

	if err != nil {
		logging.Error("Command error [%s]: %v", data.Name, err)
		respondError(s, i, err.Error())
	}
}

// respondError sends an ephemeral error message
func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("❌ Error: %s", message),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	if embed.Footer == nil {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Threat Guard"}
	}
	if embed.Timestamp == "" {
		embed.Timestamp = time.Now().Format(time.RFC3339)
	}
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// deferResponse acknowledges a command whose work may outlast the
// interaction deadline.
func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func editEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	if embed.Footer == nil {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Threat Guard"}
	}
	embeds := []*discordgo.MessageEmbed{embed}
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Embeds: &embeds})
	return err
}

func option(i *discordgo.InteractionCreate, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}
