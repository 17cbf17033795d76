// Package correlator attributes destructive events to the actor found in the
// platform audit log.
package correlator

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"go-threatguard/internal/config"
	"go-threatguard/internal/decision"
	"go-threatguard/internal/forensics"
	"go-threatguard/internal/logging"
	"go-threatguard/internal/metrics"
	"go-threatguard/internal/models"
	"go-threatguard/internal/platform"
	"go-threatguard/pkg/util"
)

type Options struct {
	// Delay before the audit log is queried; audit entries show up late.
	Delay time.Duration
	// MaxAge drops entries older than this, they describe something else.
	MaxAge     time.Duration
	IgnoreBots bool
	Clock      util.Clock
}

// AuditCorrelator resolves the actor behind an event from the single newest
// audit entry of the matching type. Missing, stale or self-authored entries
// drop the event; there are no retries.
type AuditCorrelator struct {
	platform platform.Platform
	guard    *platform.Guard
	trust    decision.Exempter
	matcher  *forensics.AuditMatcher
	opts     Options
	fetches  singleflight.Group
}

func New(p platform.Platform, guard *platform.Guard, trust decision.Exempter, opts Options) *AuditCorrelator {
	if opts.Clock == nil {
		opts.Clock = util.SystemClock()
	}
	return &AuditCorrelator{
		platform: p,
		guard:    guard,
		trust:    trust,
		matcher:  forensics.NewAuditMatcher(opts.MaxAge),
		opts:     opts,
	}
}

// ResolveActor returns the non-exempt actor responsible for an event of type
// t in cfg's community, or false when the event should be dropped.
func (c *AuditCorrelator) ResolveActor(ctx context.Context, cfg *config.CommunityConfig, t models.EventType) (string, bool) {
	action, ok := platform.AuditActionFor(t)
	if !ok {
		return c.drop("unmapped_type", cfg.CommunityID, t)
	}

	if c.opts.Delay > 0 {
		select {
		case <-ctx.Done():
			return c.drop("cancelled", cfg.CommunityID, t)
		case <-time.After(c.opts.Delay):
		}
	}

	community := cfg.CommunityID
	key := community + ":" + strconv.Itoa(int(action))
	v, err, _ := c.fetches.Do(key, func() (interface{}, error) {
		var entries []platform.AuditEntry
		err := c.guard.Do(ctx, "fetch audit log", func(ctx context.Context) error {
			var err error
			entries, err = c.platform.FetchAuditLog(ctx, community, action, 1)
			return err
		})
		return entries, err
	})
	if err != nil {
		logging.Debug("Audit log fetch for guild %s failed: %v", community, err)
		return c.drop("audit_error", community, t)
	}

	entries := v.([]platform.AuditEntry)
	if len(entries) == 0 {
		return c.drop("no_audit_entry", community, t)
	}
	entry := entries[0]

	switch {
	case !c.matcher.Match(&entry, c.opts.Clock.Now()):
		return c.drop("stale_audit_entry", community, t)
	case entry.ActorID == c.platform.SelfID():
		return c.drop("self", community, t)
	case c.opts.IgnoreBots && entry.ActorBot:
		return c.drop("bot_executor", community, t)
	case c.trust.IsExempt(ctx, cfg, entry.ActorID):
		return c.drop("exempt", community, t)
	}

	return entry.ActorID, true
}

func (c *AuditCorrelator) drop(reason, community string, t models.EventType) (string, bool) {
	metrics.EventsDropped.WithLabelValues(reason).Inc()
	logging.Debug("Dropped %s in guild %s: %s", t, community, reason)
	return "", false
}
