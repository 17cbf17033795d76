package database

import (
	"time"

	"go-threatguard/internal/config"
	"go-threatguard/internal/models"
)

type TrustKind string

const (
	TrustUser TrustKind = "user"
	TrustRole TrustKind = "role"
)

// TrustEntry is a whitelisted user or role
type TrustEntry struct {
	CommunityID string    `json:"guild_id"`
	TargetID    string    `json:"target_id"`
	Kind        TrustKind `json:"target_type"`
	AddedBy     string    `json:"added_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// tuning is the part of a community config stored as a JSON column
type tuning struct {
	Weights       map[models.EventType]int `json:"weights"`
	DefaultWeight int                      `json:"default_weight"`
	Window        config.Duration          `json:"window"`
	DecayAmount   int                      `json:"decay_amount"`
	DecayInterval config.Duration          `json:"decay_interval"`
	Burst         []config.BurstTier       `json:"burst"`
	NukeWindow    config.Duration          `json:"nuke_window"`
	NukeLimits    map[models.EventType]int `json:"nuke_limits"`
	SpamLimit     int                      `json:"spam_limit"`
	SpamInterval  config.Duration          `json:"spam_interval"`
	SpamTimeout   config.Duration          `json:"spam_timeout"`
	RaidJoinLimit int                      `json:"raid_join_limit"`
	RaidWindow    config.Duration          `json:"raid_window"`
	MinAccountAge config.Duration          `json:"min_account_age"`
	RoleStripMode config.RoleStripMode     `json:"role_strip_mode"`
}

func tuningOf(c *config.CommunityConfig) tuning {
	return tuning{
		Weights:       c.Weights,
		DefaultWeight: c.DefaultWeight,
		Window:        c.Window,
		DecayAmount:   c.DecayAmount,
		DecayInterval: c.DecayInterval,
		Burst:         c.Burst,
		NukeWindow:    c.NukeWindow,
		NukeLimits:    c.NukeLimits,
		SpamLimit:     c.SpamLimit,
		SpamInterval:  c.SpamInterval,
		SpamTimeout:   c.SpamTimeout,
		RaidJoinLimit: c.RaidJoinLimit,
		RaidWindow:    c.RaidWindow,
		MinAccountAge: c.MinAccountAge,
		RoleStripMode: c.RoleStripMode,
	}
}

func (t tuning) apply(c *config.CommunityConfig) {
	c.Weights = t.Weights
	c.DefaultWeight = t.DefaultWeight
	c.Window = t.Window
	c.DecayAmount = t.DecayAmount
	c.DecayInterval = t.DecayInterval
	c.Burst = t.Burst
	c.NukeWindow = t.NukeWindow
	c.NukeLimits = t.NukeLimits
	c.SpamLimit = t.SpamLimit
	c.SpamInterval = t.SpamInterval
	c.SpamTimeout = t.SpamTimeout
	c.RaidJoinLimit = t.RaidJoinLimit
	c.RaidWindow = t.RaidWindow
	c.MinAccountAge = t.MinAccountAge
	c.RoleStripMode = t.RoleStripMode
}
