package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorThreatStateTrim(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	st := &ActorThreatState{Entries: []ThreatEntry{
		{Score: 5, At: base},
		{Score: 3, At: base.Add(5 * time.Second)},
		{Score: 2, At: base.Add(10 * time.Second)},
	}}

	// An entry exactly window old is expired.
	st.Trim(base.Add(15*time.Second), 10*time.Second)
	require.Len(t, st.Entries, 1)
	assert.Equal(t, 2, st.Sum())
}

func TestActorThreatStateDecay(t *testing.T) {
	st := &ActorThreatState{Entries: []ThreatEntry{{Score: 2}, {Score: 5}, {Score: 3}}}

	st.Decay(3)
	require.Len(t, st.Entries, 1)
	assert.Equal(t, 2, st.Entries[0].Score)
}

func TestActorTableRemovesEmptyKeys(t *testing.T) {
	table := NewActorTable()
	key := Key{Community: "g1", Actor: "u1"}

	table.Update(key, func(st *ActorThreatState) {
		st.Entries = append(st.Entries, ThreatEntry{Score: 4, At: time.Now()})
	})
	assert.Equal(t, 1, table.Len())
	assert.Len(t, table.Entries(key), 1)
	assert.Equal(t, []Key{key}, table.Keys())

	table.Update(key, func(st *ActorThreatState) { st.Decay(10) })
	assert.Zero(t, table.Len())
	assert.Empty(t, table.Entries(key))
	assert.Zero(t, table.Len())
}

func TestActorTableReset(t *testing.T) {
	table := NewActorTable()
	key := Key{Community: "g1", Actor: "u1"}
	table.Update(key, func(st *ActorThreatState) {
		st.Entries = append(st.Entries, ThreatEntry{Score: 1})
	})

	table.Reset(key)
	assert.Zero(t, table.Len())
}

func TestActorTableConcurrentUpdates(t *testing.T) {
	table := NewActorTable()
	key := Key{Community: "g1", Actor: "u1"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table.Update(key, func(st *ActorThreatState) {
				st.Entries = append(st.Entries, ThreatEntry{Score: 1})
			})
		}()
	}
	wg.Wait()

	assert.Len(t, table.Entries(key), 50)
}

func TestSerialQueueKeepsOrderPerKey(t *testing.T) {
	q := NewSerialQueue[string]()

	var mu sync.Mutex
	got := map[string][]int{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i // per-iteration copy (pre-Go 1.22 loop semantics)
		for _, key := range []string{"a", "b"} {
			key := key // per-iteration copy (pre-Go 1.22 loop semantics)
			wg.Add(1)
			q.Submit(key, func() {
				defer wg.Done()
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
			})
		}
	}
	wg.Wait()

	for _, key := range []string{"a", "b"} {
		require.Len(t, got[key], 100)
		for i, v := range got[key] {
			assert.Equal(t, i, v)
		}
	}
	assert.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestSerialQueueRunsOneTaskAtATime(t *testing.T) {
	q := NewSerialQueue[int]()

	var running, peak int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		q.Submit(1, func() {
			defer wg.Done()
			mu.Lock()
			running++
			peak = max(peak, running)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
		})
	}
	wg.Wait()
	assert.Equal(t, 1, peak)
}
