// Package pipeline routes platform events through attribution, scoring,
// escalation and punishment.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go-threatguard/internal/config"
	"go-threatguard/internal/decision"
	"go-threatguard/internal/detectors"
	"go-threatguard/internal/dispatcher"
	"go-threatguard/internal/logging"
	"go-threatguard/internal/metrics"
	"go-threatguard/internal/models"
	"go-threatguard/internal/state"
)

// Resolver attributes an event to the actor in the audit trail.
type Resolver interface {
	ResolveActor(ctx context.Context, cfg *config.CommunityConfig, t models.EventType) (string, bool)
}

// Applier executes punishments.
type Applier interface {
	Apply(ctx context.Context, cfg *config.CommunityConfig, actor string, p models.Punishment, d dispatcher.Detail) string
	Contain(ctx context.Context, cfg *config.CommunityConfig, reason string) string
}

// Orchestrator is the single event path. Work for one (community, actor)
// runs strictly in arrival order; different keys run concurrently.
type Orchestrator struct {
	configs   config.Source
	detectors *detectors.Detectors
	policy    *decision.Policy
	resolver  Resolver
	exec      Applier

	queue    *state.SerialQueue[state.Key]
	inflight sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func New(configs config.Source, d *detectors.Detectors, policy *decision.Policy, resolver Resolver, exec Applier) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		configs:   configs,
		detectors: d,
		policy:    policy,
		resolver:  resolver,
		exec:      exec,
		queue:     state.NewSerialQueue[state.Key](),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Handle processes one event. It blocks while the actor is attributed and
// returns once the event is queued. Events are delivered at most once.
func (o *Orchestrator) Handle(ev models.Event) {
	if o.ctx.Err() != nil {
		metrics.EventsDropped.WithLabelValues("shutdown").Inc()
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	metrics.EventsIngested.WithLabelValues(string(ev.Type)).Inc()

	cfg, err := o.configs.CommunityConfig(o.ctx, ev.Community)
	if err != nil {
		logging.Error("No config for guild %s, dropping %s: %v", ev.Community, ev.Type, err)
		metrics.EventsDropped.WithLabelValues("config_error").Inc()
		return
	}
	if !enabled(cfg, &ev) {
		metrics.EventsDropped.WithLabelValues("disabled").Inc()
		return
	}

	if ev.NeedsAttribution() {
		actor, ok := o.resolver.ResolveActor(o.ctx, cfg, ev.Type)
		if !ok {
			return
		}
		ev.Actor = actor
	}

	key := state.Key{Community: ev.Community, Actor: ev.Actor}
	o.inflight.Add(1)
	o.queue.Submit(key, func() {
		defer o.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.Critical("Pipeline panic on %s in guild %s: %v\n%s", ev.Type, ev.Community, r, debug.Stack())
			}
		}()
		o.process(cfg, &ev)
		metrics.PipelineLatency.WithLabelValues(string(ev.Type)).Observe(time.Since(ev.Timestamp).Seconds())
	})
}

func enabled(cfg *config.CommunityConfig, ev *models.Event) bool {
	if ev.IsAdministrative() {
		return cfg.AntiNuke
	}
	return cfg.AntiRaid
}

func (o *Orchestrator) process(cfg *config.CommunityConfig, ev *models.Event) {
	switch ev.Type {
	case models.EventTypeMessageCreate:
		o.processMessage(cfg, ev)
	case models.EventTypeMemberJoin:
		o.processJoin(cfg, ev)
	default:
		o.processAdministrative(cfg, ev)
	}
}

func (o *Orchestrator) processAdministrative(cfg *config.CommunityConfig, ev *models.Event) {
	score := o.detectors.Scorer.Record(cfg, ev.Community, ev.Actor, ev.Type)
	count, burst := o.detectors.Nuke.Record(cfg, ev.Community, ev.Actor, ev.Type)

	punishment := o.policy.Evaluate(o.ctx, cfg, ev.Actor, score, burst)

	detail := dispatcher.Detail{Score: score, ActionType: models.ActionTypeThreatScore}
	if burst && punishment != models.PunishmentExempt {
		detail.ActionType = models.ActionTypeNuke
		detail.Reason = fmt.Sprintf("%s limit reached (%d in %s)", ev.Type, count, cfg.NukeWindow)
	}

	logging.Debug("%s by %s in guild %s: score %d, %s", ev.Type, ev.Actor, ev.Community, score, punishment)
	o.exec.Apply(o.ctx, cfg, ev.Actor, punishment, detail)
}

func (o *Orchestrator) processMessage(cfg *config.CommunityConfig, ev *models.Event) {
	if !o.detectors.Spam.Record(cfg, ev.Community, ev.Actor) {
		return
	}
	punishment := o.policy.Gate(o.ctx, cfg, ev.Actor, models.PunishmentTimeout)
	o.exec.Apply(o.ctx, cfg, ev.Actor, punishment, dispatcher.Detail{
		ActionType: models.ActionTypeSpam,
		Reason:     fmt.Sprintf("Spam: %d messages in %s", cfg.SpamLimit, cfg.SpamInterval),
	})
}

func (o *Orchestrator) processJoin(cfg *config.CommunityConfig, ev *models.Event) {
	if o.detectors.Raid.RecordJoin(cfg, ev.Community) {
		o.exec.Contain(o.ctx, cfg, fmt.Sprintf("Raid: %d joins in %s", cfg.RaidJoinLimit, cfg.RaidWindow))
	}
	if o.detectors.Raid.IsNewAccount(cfg, ev.AccountCreated) {
		punishment := o.policy.Gate(o.ctx, cfg, ev.Actor, models.PunishmentKick)
		o.exec.Apply(o.ctx, cfg, ev.Actor, punishment, dispatcher.Detail{
			ActionType: models.ActionTypeNewAccount,
			Reason:     "New account detected - Anti Raid",
		})
	}
}

// Wait blocks until every queued event has been processed.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// Close stops accepting events and cancels in-flight attribution.
func (o *Orchestrator) Close() {
	o.cancel()
}
