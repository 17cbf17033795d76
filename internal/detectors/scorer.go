package detectors

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"go-threatguard/internal/config"
	"go-threatguard/internal/models"
	"go-threatguard/internal/state"
	"go-threatguard/pkg/util"
)

// Scorer keeps the decaying windowed threat score of every actor. Decay
// ticks once per community interval, counted from the scorer's start.
type Scorer struct {
	table   *state.ActorTable
	clock   util.Clock
	started time.Time
	// lastDecay holds the time of each community's last decay tick.
	lastDecay *xsync.MapOf[string, time.Time]
}

func NewScorer(clock util.Clock) *Scorer {
	return &Scorer{
		table:     state.NewActorTable(),
		clock:     clock,
		started:   clock.Now(),
		lastDecay: xsync.NewMapOf[string, time.Time](),
	}
}

// Record appends the event's weight to the actor's window, compacts the
// window and returns floor(sum * multiplier(count)).
func (s *Scorer) Record(cfg *config.CommunityConfig, community, actor string, t models.EventType) int {
	now := s.clock.Now()
	weight := cfg.Weight(t)
	window := cfg.Window.Std()

	var score int
	s.table.Update(state.Key{Community: community, Actor: actor}, func(st *state.ActorThreatState) {
		st.Entries = append(st.Entries, state.ThreatEntry{Score: weight, At: now})
		st.Trim(now, window)
		score = cfg.Score(st.Sum(), len(st.Entries))
	})
	return score
}

// Current returns the actor's score without recording anything.
func (s *Scorer) Current(cfg *config.CommunityConfig, community, actor string) int {
	now := s.clock.Now()
	st := state.ActorThreatState{Entries: s.table.Entries(state.Key{Community: community, Actor: actor})}
	st.Trim(now, cfg.Window.Std())
	return cfg.Score(st.Sum(), len(st.Entries))
}

// Forget drops an actor's state, used after the actor has been expelled.
func (s *Scorer) Forget(community, actor string) {
	s.table.Reset(state.Key{Community: community, Actor: actor})
}

// decay re-filters every window and, in communities whose decay interval
// has elapsed, decays every actor. Actors left without entries are removed.
func (s *Scorer) decay(ctx context.Context, configs *configMemo) {
	now := s.clock.Now()
	due := make(map[string]bool)
	for _, key := range s.table.Keys() {
		cfg := configs.get(ctx, key.Community)
		tick, seen := due[key.Community]
		if !seen {
			tick = s.decayDue(key.Community, now, cfg.DecayInterval.Std())
			due[key.Community] = tick
		}
		window := cfg.Window.Std()
		s.table.Update(key, func(st *state.ActorThreatState) {
			st.Trim(now, window)
			if tick {
				st.Decay(cfg.DecayAmount)
			}
		})
	}
}

// decayDue reports whether community's decay interval elapsed at now and
// moves its clock forward when it did.
func (s *Scorer) decayDue(community string, now time.Time, interval time.Duration) bool {
	fire := false
	s.lastDecay.Compute(community, func(last time.Time, loaded bool) (time.Time, bool) {
		if !loaded {
			last = s.started
		}
		if now.Sub(last) < interval {
			return last, false
		}
		fire = true
		return now, false
	})
	return fire
}

func (s *Scorer) Tracked() int {
	return s.table.Len()
}
