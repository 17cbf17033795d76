package config

import (
	"context"
	"math"
	"slices"
	"sort"
	"time"

	"go-threatguard/internal/models"
)

// CommunityConfig is the per-community tuning of the threat engine.
type CommunityConfig struct {
	CommunityID  string `json:"guild_id" yaml:"-"`
	AntiNuke     bool   `json:"anti_nuke" yaml:"anti_nuke"`
	AntiRaid     bool   `json:"anti_raid" yaml:"anti_raid"`
	LogChannelID string `json:"log_channel_id" yaml:"log_channel_id"`

	Ladder Ladder `json:"ladder" yaml:"ladder"`

	Weights       map[models.EventType]int `json:"weights" yaml:"weights"`
	DefaultWeight int                      `json:"default_weight" yaml:"default_weight"`
	Window        Duration                 `json:"window" yaml:"window"`
	DecayAmount   int                      `json:"decay_amount" yaml:"decay_amount"`
	DecayInterval Duration                 `json:"decay_interval" yaml:"decay_interval"`
	Burst         []BurstTier              `json:"burst" yaml:"burst"`

	NukeWindow Duration                 `json:"nuke_window" yaml:"nuke_window"`
	NukeLimits map[models.EventType]int `json:"nuke_limits" yaml:"nuke_limits"`

	SpamLimit    int      `json:"spam_limit" yaml:"spam_limit"`
	SpamInterval Duration `json:"spam_interval" yaml:"spam_interval"`
	SpamTimeout  Duration `json:"spam_timeout" yaml:"spam_timeout"`

	RaidJoinLimit int      `json:"raid_join_limit" yaml:"raid_join_limit"`
	RaidWindow    Duration `json:"raid_window" yaml:"raid_window"`
	MinAccountAge Duration `json:"min_account_age" yaml:"min_account_age"`

	RoleStripMode RoleStripMode `json:"role_strip_mode" yaml:"role_strip_mode"`

	// Trust lists are stored separately and filled in on load.
	TrustedUsers []string `json:"-" yaml:"-"`
	TrustedRoles []string `json:"-" yaml:"-"`
}

func DefaultCommunityConfig() *CommunityConfig {
	return &CommunityConfig{
		AntiNuke: true,
		AntiRaid: true,
		Ladder:   DefaultLadder,
		Weights: map[models.EventType]int{
			models.EventTypeChannelCreate: 2,
			models.EventTypeChannelDelete: 5,
			models.EventTypeRoleCreate:    3,
			models.EventTypeRoleDelete:    6,
			models.EventTypeMemberBan:     8,
			models.EventTypeMemberKick:    5,
			models.EventTypeWebhookCreate: 7,
		},
		DefaultWeight: 3,
		Window:        Duration(15 * time.Second),
		DecayAmount:   3,
		DecayInterval: Duration(10 * time.Second),
		Burst:         slices.Clone(DefaultBurstTiers),
		NukeWindow:    Duration(10 * time.Second),
		NukeLimits: map[models.EventType]int{
			models.EventTypeChannelDelete: 4,
			models.EventTypeRoleDelete:    4,
			models.EventTypeMemberBan:     5,
			models.EventTypeMemberKick:    5,
			models.EventTypeChannelCreate: 6,
			models.EventTypeRoleCreate:    6,
			models.EventTypeWebhookCreate: 4,
		},
		SpamLimit:     6,
		SpamInterval:  Duration(5 * time.Second),
		SpamTimeout:   Duration(10 * time.Minute),
		RaidJoinLimit: 10,
		RaidWindow:    Duration(10 * time.Second),
		MinAccountAge: Duration(72 * time.Hour),
		RoleStripMode: StripElevated,
	}
}

// Normalize replaces unusable values with defaults. A non-monotonic ladder is
// swapped for the default ladder and the validation error is returned so the
// caller can log it; the config is usable either way.
func (c *CommunityConfig) Normalize() error {
	def := DefaultCommunityConfig()

	err := c.Ladder.Validate()
	if err != nil {
		c.Ladder = DefaultLadder
	}

	if c.Weights == nil {
		c.Weights = def.Weights
	}
	if c.DefaultWeight <= 0 {
		c.DefaultWeight = def.DefaultWeight
	}
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.DecayAmount < 0 {
		c.DecayAmount = def.DecayAmount
	}
	if c.DecayInterval <= 0 {
		c.DecayInterval = def.DecayInterval
	}
	if len(c.Burst) == 0 {
		c.Burst = def.Burst
	}
	sort.Slice(c.Burst, func(i, j int) bool { return c.Burst[i].MinCount < c.Burst[j].MinCount })

	if c.NukeWindow <= 0 {
		c.NukeWindow = def.NukeWindow
	}
	if c.NukeLimits == nil {
		c.NukeLimits = def.NukeLimits
	}
	if c.SpamLimit <= 0 {
		c.SpamLimit = def.SpamLimit
	}
	if c.SpamInterval <= 0 {
		c.SpamInterval = def.SpamInterval
	}
	if c.SpamTimeout <= 0 {
		c.SpamTimeout = def.SpamTimeout
	}
	if c.RaidJoinLimit <= 0 {
		c.RaidJoinLimit = def.RaidJoinLimit
	}
	if c.RaidWindow <= 0 {
		c.RaidWindow = def.RaidWindow
	}
	if c.MinAccountAge < 0 {
		c.MinAccountAge = def.MinAccountAge
	}
	c.RoleStripMode = ParseRoleStripMode(string(c.RoleStripMode))

	return err
}

// Weight returns the base score of an event type.
func (c *CommunityConfig) Weight(t models.EventType) int {
	if w, ok := c.Weights[t]; ok {
		return w
	}
	return c.DefaultWeight
}

// Multiplier returns the factor of the highest burst tier reached by count.
func (c *CommunityConfig) Multiplier(count int) float64 {
	mult := 1.0
	for _, tier := range c.Burst {
		if count >= tier.MinCount {
			mult = tier.Factor
		}
	}
	return mult
}

// Score is floor(sum * multiplier(count)).
func (c *CommunityConfig) Score(sum, count int) int {
	return int(math.Floor(float64(sum) * c.Multiplier(count)))
}

// NukeLimit returns the burst limit for an event type, or 0 when untracked.
func (c *CommunityConfig) NukeLimit(t models.EventType) int {
	return c.NukeLimits[t]
}

func (c *CommunityConfig) IsTrustedUser(id string) bool {
	return slices.Contains(c.TrustedUsers, id)
}

func (c *CommunityConfig) HasTrustedRole(roles []string) bool {
	for _, r := range roles {
		if slices.Contains(c.TrustedRoles, r) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so cached configs are never mutated by callers.
func (c *CommunityConfig) Clone() *CommunityConfig {
	out := *c
	out.Weights = cloneMap(c.Weights)
	out.NukeLimits = cloneMap(c.NukeLimits)
	out.Burst = slices.Clone(c.Burst)
	out.TrustedUsers = slices.Clone(c.TrustedUsers)
	out.TrustedRoles = slices.Clone(c.TrustedRoles)
	return &out
}

func cloneMap(m map[models.EventType]int) map[models.EventType]int {
	if m == nil {
		return nil
	}
	out := make(map[models.EventType]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Source resolves the effective config of a community.
type Source interface {
	CommunityConfig(ctx context.Context, communityID string) (*CommunityConfig, error)
}
