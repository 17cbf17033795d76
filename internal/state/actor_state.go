package state

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Key identifies one actor inside one community. An empty Actor keys
// community-wide counters such as joins.
type Key struct {
	Community string
	Actor     string
}

type ThreatEntry struct {
	Score int
	At    time.Time
}

// ActorThreatState is the ordered entry list of one key, oldest first.
type ActorThreatState struct {
	Entries []ThreatEntry
}

// Sum adds up the entry scores.
func (s *ActorThreatState) Sum() int {
	total := 0
	for _, e := range s.Entries {
		total += e.Score
	}
	return total
}

// Trim drops every entry that is not younger than window at now.
func (s *ActorThreatState) Trim(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(s.Entries) && !s.Entries[i].At.After(cutoff) {
		i++
	}
	if i > 0 {
		s.Entries = append(s.Entries[:0], s.Entries[i:]...)
	}
}

// Decay subtracts amount from every entry and drops those reaching zero.
func (s *ActorThreatState) Decay(amount int) {
	kept := s.Entries[:0]
	for _, e := range s.Entries {
		e.Score -= amount
		if e.Score > 0 {
			kept = append(kept, e)
		}
	}
	s.Entries = kept
}

// ActorTable owns the per-key threat states. Every mutation of a key runs
// under that key's bucket lock; different keys never contend on a shared
// lock.
type ActorTable struct {
	states *xsync.MapOf[Key, *ActorThreatState]
}

func NewActorTable() *ActorTable {
	return &ActorTable{states: xsync.NewMapOf[Key, *ActorThreatState]()}
}

// Update runs fn on the key's state, creating it if needed. The key is
// removed when fn leaves the state without entries.
func (t *ActorTable) Update(key Key, fn func(st *ActorThreatState)) {
	t.states.Compute(key, func(old *ActorThreatState, loaded bool) (*ActorThreatState, bool) {
		st := old
		if !loaded {
			st = &ActorThreatState{}
		}
		fn(st)
		return st, len(st.Entries) == 0
	})
}

// Entries returns a copy of the key's entries.
func (t *ActorTable) Entries(key Key) []ThreatEntry {
	var out []ThreatEntry
	t.states.Compute(key, func(old *ActorThreatState, loaded bool) (*ActorThreatState, bool) {
		if !loaded {
			return nil, true
		}
		out = append(out, old.Entries...)
		return old, false
	})
	return out
}

// Reset forgets a key.
func (t *ActorTable) Reset(key Key) {
	t.states.Delete(key)
}

// Keys snapshots the current keys.
func (t *ActorTable) Keys() []Key {
	keys := make([]Key, 0, t.states.Size())
	t.states.Range(func(k Key, _ *ActorThreatState) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

func (t *ActorTable) Len() int {
	return t.states.Size()
}
