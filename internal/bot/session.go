package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"go-threatguard/internal/dispatcher"
	"go-threatguard/internal/logging"
	"go-threatguard/internal/models"
	"go-threatguard/internal/platform"
)

// Session is the Discord implementation of platform.Platform.
type Session struct {
	discord *discordgo.Session
	token   string
	// fast, when set, carries bans, kicks and timeouts over fasthttp.
	fast *dispatcher.BanRequestExecutor
}

var _ platform.Platform = (*Session)(nil)

// New creates the Discord session. Retries are left to platform.Guard.
func New(token string) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans | // GUILD_MODERATION (1<<2)
		discordgo.IntentsGuildWebhooks |
		discordgo.IntentsGuildMessages
	dg.ShouldRetryOnRateLimit = false
	dg.MaxRestRetries = 0
	dg.StateEnabled = true

	return &Session{discord: dg, token: token}, nil
}

// UseFastPath routes bans, kicks and timeouts through the fasthttp executor.
func (s *Session) UseFastPath(fast *dispatcher.BanRequestExecutor) {
	s.fast = fast
}

// Discord returns the underlying discordgo session
func (s *Session) Discord() *discordgo.Session {
	return s.discord
}

// Connect opens the Discord websocket connection
func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	logging.Info("Discord bot connected as %s", s.SelfID())
	return nil
}

// Close closes the Discord connection
func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}

// RegisterCommands registers all slash commands with Discord
func (s *Session) RegisterCommands(appID string, commands []*discordgo.ApplicationCommand) error {
	if appID == "" {
		appID = s.SelfID()
	}
	logging.Info("Registering %d slash commands...", len(commands))
	if _, err := s.discord.ApplicationCommandBulkOverwrite(appID, "", commands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}

func (s *Session) SelfID() string {
	if s.discord.State != nil && s.discord.State.User != nil {
		return s.discord.State.User.ID
	}
	return ""
}

func (s *Session) BanActor(ctx context.Context, community, actor, reason string) error {
	if s.fast != nil {
		return s.fast.ExecuteBan(ctx, community, actor, reason)
	}
	return wrap("ban", s.discord.GuildBanCreateWithReason(community, actor, reason, 0, discordgo.WithContext(ctx)))
}

func (s *Session) KickActor(ctx context.Context, community, actor, reason string) error {
	if s.fast != nil {
		return s.fast.ExecuteKick(ctx, community, actor, reason)
	}
	return wrap("kick", s.discord.GuildMemberDeleteWithReason(community, actor, reason, discordgo.WithContext(ctx)))
}

func (s *Session) TimeoutActor(ctx context.Context, community, actor string, d time.Duration, reason string) error {
	until := time.Now().Add(d)
	if s.fast != nil {
		return s.fast.ExecuteTimeout(ctx, community, actor, until, reason)
	}
	return wrap("timeout", s.discord.GuildMemberTimeout(community, actor, &until,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason)))
}

func (s *Session) RemoveRole(ctx context.Context, community, actor, role, reason string) error {
	return wrap("remove role", s.discord.GuildMemberRoleRemove(community, actor, role,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason)))
}

func (s *Session) FetchMember(ctx context.Context, community, actor string) (*platform.Member, error) {
	m, err := s.discord.State.Member(community, actor)
	if err != nil {
		m, err = s.discord.GuildMember(community, actor, discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrap("fetch member", err)
		}
	}
	return convertMember(m), nil
}

func (s *Session) FetchCommunity(ctx context.Context, community string) (*platform.Community, error) {
	g, err := s.discord.State.Guild(community)
	if err != nil || len(g.Roles) == 0 {
		g, err = s.discord.Guild(community, discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrap("fetch community", err)
		}
	}

	out := &platform.Community{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID}
	for _, r := range g.Roles {
		out.Roles = append(out.Roles, platform.Role{
			ID:          r.ID,
			Name:        r.Name,
			Permissions: r.Permissions,
			Position:    r.Position,
			Managed:     r.Managed,
		})
	}
	return out, nil
}

func (s *Session) ListChannels(ctx context.Context, community string) ([]platform.Channel, error) {
	channels, err := s.discord.GuildChannels(community, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("list channels", err)
	}

	out := make([]platform.Channel, 0, len(channels))
	for _, ch := range channels {
		c := platform.Channel{
			ID:         ch.ID,
			Name:       ch.Name,
			Kind:       channelKind(ch.Type),
			Overwrites: make(map[string]models.Overlay, len(ch.PermissionOverwrites)),
		}
		for _, ow := range ch.PermissionOverwrites {
			c.Overwrites[ow.ID] = models.Overlay{Allow: ow.Allow, Deny: ow.Deny, Existed: true}
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Session) EditChannelOverwrite(ctx context.Context, channel, principal string, ov models.Overlay) error {
	return wrap("edit overwrite", s.discord.ChannelPermissionSet(channel, principal,
		discordgo.PermissionOverwriteTypeRole, ov.Allow, ov.Deny, discordgo.WithContext(ctx)))
}

func (s *Session) DeleteChannelOverwrite(ctx context.Context, channel, principal string) error {
	return wrap("delete overwrite", s.discord.ChannelPermissionDelete(channel, principal, discordgo.WithContext(ctx)))
}

func (s *Session) FetchAuditLog(ctx context.Context, community string, action platform.AuditAction, limit int) ([]platform.AuditEntry, error) {
	audit, err := s.discord.GuildAuditLog(community, "", "", int(action), limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("fetch audit log", err)
	}

	bots := make(map[string]bool, len(audit.Users))
	for _, u := range audit.Users {
		bots[u.ID] = u.Bot
	}

	out := make([]platform.AuditEntry, 0, len(audit.AuditLogEntries))
	for _, e := range audit.AuditLogEntries {
		created, err := discordgo.SnowflakeTimestamp(e.ID)
		if err != nil {
			continue
		}
		entry := platform.AuditEntry{
			ID:        e.ID,
			ActorID:   e.UserID,
			ActorBot:  bots[e.UserID],
			TargetID:  e.TargetID,
			CreatedAt: created,
		}
		if e.ActionType != nil {
			entry.Action = platform.AuditAction(*e.ActionType)
		}
		out = append(out, entry)
	}
	return out, nil
}

func convertMember(m *discordgo.Member) *platform.Member {
	out := &platform.Member{
		Roles:    append([]string(nil), m.Roles...),
		JoinedAt: m.JoinedAt,
	}
	if m.User != nil {
		out.ID = m.User.ID
		out.Bot = m.User.Bot
		out.CreatedAt, _ = discordgo.SnowflakeTimestamp(m.User.ID)
	}
	return out
}

func channelKind(t discordgo.ChannelType) platform.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildText:
		return platform.ChannelText
	case discordgo.ChannelTypeGuildVoice:
		return platform.ChannelVoice
	case discordgo.ChannelTypeGuildCategory:
		return platform.ChannelCategory
	case discordgo.ChannelTypeGuildNews:
		return platform.ChannelNews
	case discordgo.ChannelTypeGuildStageVoice:
		return platform.ChannelStage
	case discordgo.ChannelTypeGuildForum:
		return platform.ChannelForum
	default:
		return platform.ChannelOther
	}
}

// wrap converts discordgo REST failures into platform.StatusError.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) && rl.RateLimit != nil && rl.TooManyRequests != nil {
		return &platform.StatusError{Op: op, Code: 429, Message: rl.Message, RetryAfter: rl.RetryAfter}
	}

	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		se := &platform.StatusError{Op: op, Code: re.Response.StatusCode}
		if re.Message != nil {
			se.Message = re.Message.Message
		}
		return se
	}
	return fmt.Errorf("%s: %w", op, err)
}
