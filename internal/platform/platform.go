// Package platform is the boundary between the engine and the chat platform.
package platform

import (
	"context"
	"slices"
	"time"

	"go-threatguard/internal/models"
)

// Platform is every call the engine makes against the chat platform. All of
// them may fail; callers go through a Guard.
type Platform interface {
	SelfID() string

	BanActor(ctx context.Context, community, actor, reason string) error
	KickActor(ctx context.Context, community, actor, reason string) error
	TimeoutActor(ctx context.Context, community, actor string, d time.Duration, reason string) error
	RemoveRole(ctx context.Context, community, actor, role, reason string) error

	FetchMember(ctx context.Context, community, actor string) (*Member, error)
	FetchCommunity(ctx context.Context, community string) (*Community, error)
	ListChannels(ctx context.Context, community string) ([]Channel, error)
	EditChannelOverwrite(ctx context.Context, channel, principal string, ov models.Overlay) error
	DeleteChannelOverwrite(ctx context.Context, channel, principal string) error

	FetchAuditLog(ctx context.Context, community string, action AuditAction, limit int) ([]AuditEntry, error)
}

type ChannelKind uint8

const (
	ChannelOther ChannelKind = iota
	ChannelText
	ChannelVoice
	ChannelCategory
	ChannelNews
	ChannelStage
	ChannelForum
)

// Restrictable reports whether lockdown overwrites apply to the channel.
func (k ChannelKind) Restrictable() bool {
	switch k {
	case ChannelText, ChannelVoice, ChannelNews, ChannelStage, ChannelForum:
		return true
	}
	return false
}

type Channel struct {
	ID   string
	Name string
	Kind ChannelKind
	// Overwrites is keyed by principal (role or user id).
	Overwrites map[string]models.Overlay
}

// Overwrite returns the principal's overlay, or an empty one with Existed
// false.
func (c *Channel) Overwrite(principal string) models.Overlay {
	if ov, ok := c.Overwrites[principal]; ok {
		ov.Existed = true
		return ov
	}
	return models.Overlay{}
}

type Role struct {
	ID          string
	Name        string
	Permissions int64
	Position    int
	Managed     bool
}

type Community struct {
	ID      string
	Name    string
	OwnerID string
	Roles   []Role
}

func (c *Community) Role(id string) (Role, bool) {
	i := slices.IndexFunc(c.Roles, func(r Role) bool { return r.ID == id })
	if i < 0 {
		return Role{}, false
	}
	return c.Roles[i], true
}

// HighestPosition returns the top role position among ids, or -1.
func (c *Community) HighestPosition(ids []string) int {
	top := -1
	for _, id := range ids {
		if r, ok := c.Role(id); ok && r.Position > top {
			top = r.Position
		}
	}
	return top
}

// Permissions ORs the permission bits of the given roles and the default role.
func (c *Community) Permissions(ids []string) int64 {
	var perms int64
	if r, ok := c.Role(c.ID); ok {
		perms = r.Permissions
	}
	for _, id := range ids {
		if r, ok := c.Role(id); ok {
			perms |= r.Permissions
		}
	}
	return perms
}

type Member struct {
	ID        string
	Bot       bool
	Roles     []string
	JoinedAt  time.Time
	CreatedAt time.Time
}

// AuditAction numbers follow the platform's audit log action types.
type AuditAction int

const (
	AuditChannelCreate AuditAction = 10
	AuditChannelDelete AuditAction = 12
	AuditMemberKick    AuditAction = 20
	AuditMemberBan     AuditAction = 22
	AuditRoleCreate    AuditAction = 30
	AuditRoleDelete    AuditAction = 32
	AuditWebhookCreate AuditAction = 50
)

var auditActions = map[models.EventType]AuditAction{
	models.EventTypeChannelCreate: AuditChannelCreate,
	models.EventTypeChannelDelete: AuditChannelDelete,
	models.EventTypeMemberKick:    AuditMemberKick,
	models.EventTypeMemberBan:     AuditMemberBan,
	models.EventTypeRoleCreate:    AuditRoleCreate,
	models.EventTypeRoleDelete:    AuditRoleDelete,
	models.EventTypeWebhookCreate: AuditWebhookCreate,
}

// AuditActionFor maps an event type to the audit action that records it.
func AuditActionFor(t models.EventType) (AuditAction, bool) {
	a, ok := auditActions[t]
	return a, ok
}

type AuditEntry struct {
	ID        string
	Action    AuditAction
	ActorID   string
	ActorBot  bool
	TargetID  string
	CreatedAt time.Time
}
