package detectors

import (
	"context"
	"time"

	"go-threatguard/internal/config"
	"go-threatguard/internal/models"
	"go-threatguard/internal/state"
	"go-threatguard/pkg/util"
)

// windowCounter counts hits per key over a trailing window.
type windowCounter struct {
	table *state.ActorTable
	clock util.Clock
}

func newWindowCounter(clock util.Clock) windowCounter {
	return windowCounter{table: state.NewActorTable(), clock: clock}
}

// hit records one hit and returns the count inside the window. With reset
// set, a count reaching limit clears the key so the next burst starts over.
func (w windowCounter) hit(key state.Key, window time.Duration, limit int, reset bool) (int, bool) {
	now := w.clock.Now()
	var count int
	var breached bool
	w.table.Update(key, func(st *state.ActorThreatState) {
		st.Entries = append(st.Entries, state.ThreatEntry{Score: 1, At: now})
		st.Trim(now, window)
		count = len(st.Entries)
		breached = limit > 0 && count >= limit
		if breached && reset {
			st.Entries = st.Entries[:0]
		}
	})
	return count, breached
}

func (w windowCounter) sweep(window func(key state.Key) time.Duration) {
	now := w.clock.Now()
	for _, key := range w.table.Keys() {
		d := window(key)
		w.table.Update(key, func(st *state.ActorThreatState) {
			st.Trim(now, d)
		})
	}
}

// NukeTracker catches rapid bursts of one destructive action type by one
// actor. It keeps counting after a breach, so every further event inside the
// window is also reported as a breach.
type NukeTracker struct {
	windowCounter
}

func NewNukeTracker(clock util.Clock) *NukeTracker {
	return &NukeTracker{newWindowCounter(clock)}
}

func nukeKey(community, actor string, t models.EventType) state.Key {
	return state.Key{Community: community, Actor: actor + "/" + string(t)}
}

// Record returns the count of t by actor in the nuke window and whether it
// reached the configured limit. Untracked types never breach.
func (n *NukeTracker) Record(cfg *config.CommunityConfig, community, actor string, t models.EventType) (int, bool) {
	limit := cfg.NukeLimit(t)
	if limit <= 0 {
		return 0, false
	}
	return n.hit(nukeKey(community, actor, t), cfg.NukeWindow.Std(), limit, false)
}

func (n *NukeTracker) expire(ctx context.Context, configs *configMemo) {
	n.sweep(func(key state.Key) time.Duration {
		return configs.get(ctx, key.Community).NukeWindow.Std()
	})
}

// SpamDetector counts messages per actor. Reaching the limit reports once
// and clears the window.
type SpamDetector struct {
	windowCounter
}

func NewSpamDetector(clock util.Clock) *SpamDetector {
	return &SpamDetector{newWindowCounter(clock)}
}

func (s *SpamDetector) Record(cfg *config.CommunityConfig, community, actor string) bool {
	_, breached := s.hit(state.Key{Community: community, Actor: actor}, cfg.SpamInterval.Std(), cfg.SpamLimit, true)
	return breached
}

func (s *SpamDetector) expire(ctx context.Context, configs *configMemo) {
	s.sweep(func(key state.Key) time.Duration {
		return configs.get(ctx, key.Community).SpamInterval.Std()
	})
}

// RaidDetector counts joins per community.
type RaidDetector struct {
	windowCounter
}

func NewRaidDetector(clock util.Clock) *RaidDetector {
	return &RaidDetector{newWindowCounter(clock)}
}

// RecordJoin reports a mass join once per burst.
func (r *RaidDetector) RecordJoin(cfg *config.CommunityConfig, community string) bool {
	_, breached := r.hit(state.Key{Community: community}, cfg.RaidWindow.Std(), cfg.RaidJoinLimit, true)
	return breached
}

// IsNewAccount reports accounts younger than the community's minimum age.
func (r *RaidDetector) IsNewAccount(cfg *config.CommunityConfig, created time.Time) bool {
	if created.IsZero() || cfg.MinAccountAge <= 0 {
		return false
	}
	return r.clock.Now().Sub(created) < cfg.MinAccountAge.Std()
}

func (r *RaidDetector) expire(ctx context.Context, configs *configMemo) {
	r.sweep(func(key state.Key) time.Duration {
		return configs.get(ctx, key.Community).RaidWindow.Std()
	})
}
