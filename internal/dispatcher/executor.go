// Package dispatcher applies punishments against the platform.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go-threatguard/internal/config"
	"go-threatguard/internal/forensics"
	"go-threatguard/internal/logging"
	"go-threatguard/internal/metrics"
	"go-threatguard/internal/models"
	"go-threatguard/internal/platform"
	"go-threatguard/pkg/util"
)

// Locker is the part of lockdown.Manager the executor needs.
type Locker interface {
	Trigger(ctx context.Context, community, reason string, manual bool) (bool, error)
}

// Detail describes why a punishment is applied.
type Detail struct {
	Score      int
	ActionType string
	Reason     string
}

// Applied outcomes written to the threat log.
const (
	AppliedNone     = "none"
	AppliedLogged   = "logged"
	AppliedFailed   = "failed"
	AppliedPartial  = "partial"
	AppliedDone     = "applied"
	AppliedSkipped  = "skipped"
	AppliedExempted = "exempt"
)

// Executor turns decisions into platform calls. Every call is best effort:
// failures are logged and show up in the applied outcome, never as errors.
type Executor struct {
	platform  platform.Platform
	guard     *platform.Guard
	lockdown  Locker
	threatLog *forensics.ThreatLog
	clock     util.Clock
}

func New(p platform.Platform, guard *platform.Guard, lockdown Locker, threatLog *forensics.ThreatLog, clock util.Clock) *Executor {
	if clock == nil {
		clock = util.SystemClock()
	}
	return &Executor{
		platform:  p,
		guard:     guard,
		lockdown:  lockdown,
		threatLog: threatLog,
		clock:     clock,
	}
}

// Apply executes punishment against actor and writes exactly one threat log
// entry, NONE and EXEMPT included. It returns the applied outcome.
func (e *Executor) Apply(ctx context.Context, cfg *config.CommunityConfig, actor string, punishment models.Punishment, d Detail) string {
	metrics.Punishments.WithLabelValues(punishment.String()).Inc()

	reason := d.Reason
	if reason == "" {
		reason = fmt.Sprintf("Threat score %d", d.Score)
	}

	var applied string
	switch punishment {
	case models.PunishmentNone:
		applied = AppliedNone
	case models.PunishmentExempt:
		applied = AppliedExempted
	case models.PunishmentWarn:
		logging.Warn("Warning %s in guild %s: %s", actor, cfg.CommunityID, reason)
		applied = AppliedLogged
	case models.PunishmentTimeout:
		applied = e.outcome(e.guard.Try(ctx, "timeout", actor, func(ctx context.Context) error {
			return e.platform.TimeoutActor(ctx, cfg.CommunityID, actor, cfg.SpamTimeout.Std(), reason)
		}))
	case models.PunishmentRoleStrip:
		applied = e.stripRoles(ctx, cfg, actor, reason)
	case models.PunishmentKick:
		applied = e.outcome(e.guard.Try(ctx, "kick", actor, func(ctx context.Context) error {
			return e.platform.KickActor(ctx, cfg.CommunityID, actor, reason)
		}))
	case models.PunishmentBan:
		applied = e.ban(ctx, cfg.CommunityID, actor, reason)
	case models.PunishmentLockdown:
		locked := e.lock(ctx, cfg.CommunityID, reason)
		banned := e.ban(ctx, cfg.CommunityID, actor, reason)
		applied = banned
		if !locked && banned == AppliedDone {
			applied = AppliedPartial
		}
	default:
		logging.Error("Unknown punishment %d for %s in guild %s", punishment, actor, cfg.CommunityID)
		applied = AppliedFailed
	}

	if punishment >= models.PunishmentTimeout && punishment != models.PunishmentExempt {
		logging.Info("%s %s in guild %s: %s (score %d)", punishment, actor, cfg.CommunityID, applied, d.Score)
	}

	e.record(ctx, cfg, actor, punishment, applied, d.Score, d.ActionType, reason)
	return applied
}

// Contain locks the community down without an actor to punish. Used when a
// raid is detected.
func (e *Executor) Contain(ctx context.Context, cfg *config.CommunityConfig, reason string) string {
	metrics.Punishments.WithLabelValues(models.PunishmentLockdown.String()).Inc()
	applied := e.outcome(e.lock(ctx, cfg.CommunityID, reason))
	e.record(ctx, cfg, "", models.PunishmentLockdown, applied, 0, models.ActionTypeRaid, reason)
	return applied
}

func (e *Executor) lock(ctx context.Context, community, reason string) bool {
	if e.lockdown == nil {
		return false
	}
	if _, err := e.lockdown.Trigger(ctx, community, reason, false); err != nil {
		logging.Error("Lockdown of guild %s failed: %v", community, err)
		return false
	}
	return true
}

func (e *Executor) ban(ctx context.Context, community, actor, reason string) string {
	return e.outcome(e.guard.Try(ctx, "ban", actor, func(ctx context.Context) error {
		return e.platform.BanActor(ctx, community, actor, reason)
	}))
}

// stripRoles removes the actor's roles one by one; a failed removal does not
// stop the rest.
func (e *Executor) stripRoles(ctx context.Context, cfg *config.CommunityConfig, actor, reason string) string {
	var member *platform.Member
	var community *platform.Community
	err := e.guard.Do(ctx, "fetch member", func(ctx context.Context) error {
		var err error
		member, err = e.platform.FetchMember(ctx, cfg.CommunityID, actor)
		return err
	})
	if err == nil {
		err = e.guard.Do(ctx, "fetch community", func(ctx context.Context) error {
			var err error
			community, err = e.platform.FetchCommunity(ctx, cfg.CommunityID)
			return err
		})
	}
	if err != nil {
		logging.Warn("Role strip of %s in guild %s impossible: %v", actor, cfg.CommunityID, err)
		return AppliedFailed
	}

	targets := StrippableRoles(community, member.Roles, cfg.RoleStripMode, e.botTop(ctx, community))
	if len(targets) == 0 {
		return AppliedSkipped
	}

	removed := 0
	for _, role := range targets {
		role := role // per-iteration copy (pre-Go 1.22 loop semantics)
		if e.guard.Try(ctx, "remove role", role, func(ctx context.Context) error {
			return e.platform.RemoveRole(ctx, cfg.CommunityID, actor, role, reason)
		}) {
			removed++
		}
	}
	switch removed {
	case len(targets):
		return AppliedDone
	case 0:
		return AppliedFailed
	default:
		return AppliedPartial
	}
}

// botTop is the position of the bot's highest role, or -1 when unknown.
func (e *Executor) botTop(ctx context.Context, community *platform.Community) int {
	var self *platform.Member
	err := e.guard.Do(ctx, "fetch self", func(ctx context.Context) error {
		var err error
		self, err = e.platform.FetchMember(ctx, community.ID, e.platform.SelfID())
		return err
	})
	if err != nil {
		return -1
	}
	return community.HighestPosition(self.Roles)
}

// StrippableRoles picks the roles ROLE_STRIP removes. The default role and
// integration-managed roles are never touched. In elevated mode every role
// granting an elevated permission is picked; in editable mode every role
// below botTop.
func StrippableRoles(community *platform.Community, roles []string, mode config.RoleStripMode, botTop int) []string {
	var out []string
	for _, id := range roles {
		if id == community.ID {
			continue
		}
		r, ok := community.Role(id)
		if !ok || r.Managed {
			continue
		}
		switch mode {
		case config.StripEditable:
			if r.Position < botTop {
				out = append(out, id)
			}
		default:
			if platform.IsElevated(r.Permissions) {
				out = append(out, id)
			}
		}
	}
	return out
}

func (e *Executor) outcome(ok bool) string {
	if ok {
		return AppliedDone
	}
	return AppliedFailed
}

func (e *Executor) record(ctx context.Context, cfg *config.CommunityConfig, actor string, p models.Punishment,
	applied string, score int, actionType, reason string) {
	if e.threatLog == nil {
		return
	}
	e.threatLog.Record(ctx, models.ThreatLogEntry{
		Community:  cfg.CommunityID,
		Actor:      actor,
		ActionType: actionType,
		Score:      score,
		Punishment: p.String(),
		Applied:    applied,
		Reason:     reason,
		Timestamp:  e.clock.Now().Truncate(time.Millisecond),
	}, cfg.LogChannelID)
}
