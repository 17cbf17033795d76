package decision

import (
	"context"

	"go-threatguard/internal/config"
	"go-threatguard/internal/models"
)

// Decide maps a score to the most severe ladder step it reaches. Exempt
// actors always get PunishmentExempt. Thresholds are inclusive.
func Decide(ladder config.Ladder, score int, exempt bool) models.Punishment {
	if exempt {
		return models.PunishmentExempt
	}

	switch {
	case score >= ladder.Lockdown:
		return models.PunishmentLockdown
	case score >= ladder.Ban:
		return models.PunishmentBan
	case score >= ladder.Kick:
		return models.PunishmentKick
	case score >= ladder.RoleStrip:
		return models.PunishmentRoleStrip
	case score >= ladder.Warn:
		return models.PunishmentWarn
	default:
		return models.PunishmentNone
	}
}

// Exempter answers whether an actor is outside enforcement.
type Exempter interface {
	IsExempt(ctx context.Context, cfg *config.CommunityConfig, actor string) bool
}

// Policy resolves exemption and then applies Decide.
type Policy struct {
	trust Exempter
}

func NewPolicy(trust Exempter) *Policy {
	return &Policy{trust: trust}
}

// Evaluate decides for score. A burst flags a nuke in progress and lifts the
// outcome to at least LOCKDOWN.
func (p *Policy) Evaluate(ctx context.Context, cfg *config.CommunityConfig, actor string, score int, burst bool) models.Punishment {
	exempt := p.trust.IsExempt(ctx, cfg, actor)
	punishment := Decide(cfg.Ladder, score, exempt)
	if burst {
		punishment = punishment.Severer(models.PunishmentLockdown)
	}
	return punishment
}

// Gate returns punishment, or PunishmentExempt when actor is exempt. It
// covers actions decided outside the ladder, such as spam timeouts.
func (p *Policy) Gate(ctx context.Context, cfg *config.CommunityConfig, actor string, punishment models.Punishment) models.Punishment {
	if p.trust.IsExempt(ctx, cfg, actor) {
		return models.PunishmentExempt
	}
	return punishment
}
