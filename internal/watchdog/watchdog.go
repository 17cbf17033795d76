package watchdog

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"go-threatguard/internal/logging"
)

// Watchdog tracks heartbeats of background loops and reports the ones that
// went quiet.
type Watchdog struct {
	mu            sync.RWMutex
	components    map[string]*ComponentHealth
	checkInterval time.Duration
	started       time.Time
	now           func() time.Time
}

type ComponentHealth struct {
	Name          string
	LastHeartbeat atomic.Int64
	healthy       atomic.Bool
	Threshold     time.Duration
}

func NewWatchdog(checkInterval time.Duration) *Watchdog {
	return &Watchdog{
		components:    make(map[string]*ComponentHealth),
		checkInterval: checkInterval,
		started:       time.Now(),
		now:           time.Now,
	}
}

func (w *Watchdog) RegisterComponent(name string, threshold time.Duration) {
	comp := &ComponentHealth{Name: name, Threshold: threshold}
	comp.healthy.Store(true)
	w.mu.Lock()
	w.components[name] = comp
	w.mu.Unlock()
}

// Beat returns a heartbeat func for name, handy as a loop callback.
func (w *Watchdog) Beat(name string) func() {
	return func() { w.Heartbeat(name) }
}

func (w *Watchdog) Heartbeat(name string) {
	w.mu.RLock()
	comp, exists := w.components[name]
	w.mu.RUnlock()
	if exists {
		comp.LastHeartbeat.Store(w.now().UnixNano())
		comp.healthy.Store(true)
	}
}

// Run checks every component each interval until ctx is done.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkAllComponents()
		}
	}
}

func (w *Watchdog) checkAllComponents() {
	now := w.now().UnixNano()

	w.mu.RLock()
	defer w.mu.RUnlock()
	for name, comp := range w.components {
		lastBeat := comp.LastHeartbeat.Load()
		if lastBeat == 0 {
			continue
		}

		elapsed := time.Duration(now - lastBeat)
		if elapsed > comp.Threshold && comp.healthy.Swap(false) {
			logging.Error("Watchdog: %s unhealthy (no heartbeat for %v)", name, elapsed)
		}
	}
}

func (w *Watchdog) IsHealthy(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if comp, exists := w.components[name]; exists {
		return comp.healthy.Load()
	}
	return false
}

func (w *Watchdog) GetStatus() map[string]bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	status := make(map[string]bool, len(w.components))
	for name, comp := range w.components {
		status[name] = comp.healthy.Load()
	}
	return status
}

// Uptime since the watchdog was created.
func (w *Watchdog) Uptime() time.Duration {
	return w.now().Sub(w.started)
}

// SystemSnapshot is the host and runtime view shown by /status.
type SystemSnapshot struct {
	Hostname      string
	HostUptime    time.Duration
	CPUPercent    float64
	MemoryPercent float64
	MemoryUsed    uint64
	MemoryTotal   uint64
	GoRoutines    int
	HeapAlloc     uint64
}

// Snapshot samples the host. Fields the host refuses to report stay zero.
func Snapshot(ctx context.Context) SystemSnapshot {
	var snap SystemSnapshot

	if info, err := host.InfoWithContext(ctx); err == nil {
		snap.Hostname = info.Hostname
		snap.HostUptime = time.Duration(info.Uptime) * time.Second
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemoryPercent = vm.UsedPercent
		snap.MemoryUsed = vm.Used
		snap.MemoryTotal = vm.Total
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	snap.GoRoutines = runtime.NumGoroutine()
	snap.HeapAlloc = m.HeapAlloc
	return snap
}
