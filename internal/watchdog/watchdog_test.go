package watchdog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatchdogFlagsSilentComponents(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	w := NewWatchdog(time.Second)
	w.now = func() time.Time { return now }

	w.RegisterComponent("decay_loop", 10*time.Second)
	w.RegisterComponent("idle", time.Second)
	assert.True(t, w.IsHealthy("decay_loop"))
	assert.False(t, w.IsHealthy("unknown"))

	w.Beat("decay_loop")()
	now = now.Add(11 * time.Second)
	w.checkAllComponents()
	assert.False(t, w.IsHealthy("decay_loop"))
	assert.True(t, w.IsHealthy("idle"), "components that never beat are not judged")

	w.Heartbeat("decay_loop")
	assert.Equal(t, map[string]bool{"decay_loop": true, "idle": true}, w.GetStatus())
}

func TestWatchdogRunStopsWithContext(t *testing.T) {
	w := NewWatchdog(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSnapshotReportsRuntime(t *testing.T) {
	snap := Snapshot(context.Background())
	assert.Positive(t, snap.GoRoutines)
	assert.Positive(t, snap.HeapAlloc)
}
