package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"go-threatguard/internal/logging"
	"go-threatguard/internal/models"
)

// EventSink receives converted gateway events.
type EventSink interface {
	Handle(ev models.Event)
}

// Forgetter drops an actor's threat state.
type Forgetter interface {
	Forget(community, actor string)
}

// SetupEventHandlers converts gateway events into models.Event and feeds
// sink. Administrative events carry no actor; it is attributed later from the
// audit log.
func (s *Session) SetupEventHandlers(sink EventSink, forget Forgetter) {
	logging.Info("Setting up Discord event handlers...")

	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.Ready) {
		logging.Info("Bot ready! Connected as %s to %d guilds", r.User.Username, len(r.Guilds))
	})

	s.discord.AddHandler(func(sess *discordgo.Session, g *discordgo.GuildCreate) {
		logging.Info("Bot joined/loaded guild: %s (ID: %s)", g.Name, g.ID)
	})

	// An unbanned user starts with a clean slate if they return.
	s.discord.AddHandler(func(sess *discordgo.Session, b *discordgo.GuildBanRemove) {
		if b.GuildID == "" || b.User == nil || forget == nil {
			return
		}
		forget.Forget(b.GuildID, b.User.ID)
		logging.Info("[STATE] Cleared actor state for unbanned user %s in guild %s", b.User.ID, b.GuildID)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, c *discordgo.ChannelCreate) {
		if c.GuildID == "" {
			return
		}
		sink.Handle(models.Event{Type: models.EventTypeChannelCreate, Community: c.GuildID, Channel: c.ID, Timestamp: time.Now()})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, c *discordgo.ChannelDelete) {
		if c.GuildID == "" {
			return
		}
		sink.Handle(models.Event{Type: models.EventTypeChannelDelete, Community: c.GuildID, Channel: c.ID, Timestamp: time.Now()})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.GuildRoleCreate) {
		if r.GuildID == "" || r.Role == nil {
			return
		}
		// Managed roles are created by the platform for bots and integrations.
		if r.Role.Managed {
			logging.Debug("[EVENT] Skipping managed role create: %s", r.Role.ID)
			return
		}
		sink.Handle(models.Event{Type: models.EventTypeRoleCreate, Community: r.GuildID, Role: r.Role.ID, Timestamp: time.Now()})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.GuildRoleDelete) {
		if r.GuildID == "" {
			return
		}
		sink.Handle(models.Event{Type: models.EventTypeRoleDelete, Community: r.GuildID, Role: r.RoleID, Timestamp: time.Now()})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, b *discordgo.GuildBanAdd) {
		if b.GuildID == "" || b.User == nil {
			return
		}
		sink.Handle(models.Event{Type: models.EventTypeMemberBan, Community: b.GuildID, Target: b.User.ID, Timestamp: time.Now()})
	})

	// Removals are kicks only when the audit log says so; voluntary leaves
	// find no fresh kick entry and are dropped.
	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.GuildMemberRemove) {
		if m.GuildID == "" || m.Member == nil || m.User == nil {
			return
		}
		sink.Handle(models.Event{Type: models.EventTypeMemberKick, Community: m.GuildID, Target: m.User.ID, Timestamp: time.Now()})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, w *discordgo.WebhooksUpdate) {
		if w.GuildID == "" {
			return
		}
		sink.Handle(models.Event{Type: models.EventTypeWebhookCreate, Community: w.GuildID, Channel: w.ChannelID, Timestamp: time.Now()})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if m.GuildID == "" || m.Member == nil || m.User == nil {
			return
		}
		created, err := discordgo.SnowflakeTimestamp(m.User.ID)
		if err != nil {
			logging.Debug("[EVENT] Join with malformed user id %s", m.User.ID)
		}
		sink.Handle(models.Event{
			Type:           models.EventTypeMemberJoin,
			Community:      m.GuildID,
			Actor:          m.User.ID,
			AccountCreated: created,
			Timestamp:      time.Now(),
		})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.MessageCreate) {
		if m.GuildID == "" || m.Author == nil || m.Author.Bot || m.WebhookID != "" {
			return
		}
		sink.Handle(models.Event{
			Type:      models.EventTypeMessageCreate,
			Community: m.GuildID,
			Actor:     m.Author.ID,
			Channel:   m.ChannelID,
			Timestamp: time.Now(),
		})
	})

	logging.Info("Discord event handlers configured")
}
