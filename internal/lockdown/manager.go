package lockdown

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"

	"go-threatguard/internal/logging"
	"go-threatguard/internal/metrics"
	"go-threatguard/internal/models"
	"go-threatguard/internal/platform"
	"go-threatguard/pkg/util"
)

const autoUnlockTimeout = 2 * time.Minute

type communityLock struct {
	mu    sync.Mutex
	state State
	// token identifies the one scheduled auto-unlock allowed to fire.
	token string
	timer *time.Timer
}

type Options struct {
	AutoUnlockAfter time.Duration
	Concurrency     int
	Clock           util.Clock
}

// Manager owns the lockdown state of every community. Transitions of one
// community are serialized by that community's mutex.
type Manager struct {
	store    Store
	platform platform.Platform
	guard    *platform.Guard
	opts     Options

	locks *xsync.MapOf[string, *communityLock]

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(store Store, p platform.Platform, guard *platform.Guard, opts Options) *Manager {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Clock == nil {
		opts.Clock = util.SystemClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:    store,
		platform: p,
		guard:    guard,
		opts:     opts,
		locks:    xsync.NewMapOf[string, *communityLock](),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *Manager) lockFor(community string) *communityLock {
	l, _ := m.locks.LoadOrCompute(community, func() *communityLock {
		return &communityLock{}
	})
	return l
}

// Trigger locks the community down. It snapshots the everyone overwrite of
// every restrictable channel, persists the snapshots together with the
// active flag, and only then applies the restrictive overwrites. Triggering
// an already locked community does nothing and returns false. Non-manual
// triggers schedule an automatic unlock.
func (m *Manager) Trigger(ctx context.Context, community, reason string, manual bool) (bool, error) {
	l := m.lockFor(community)
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateLocked {
		return false, nil
	}

	rec, err := m.store.GetLockdown(ctx, community)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if rec.Residual() {
		// Persisted state wins over memory; restore goes through Unlock.
		l.state = StateLocked
		metrics.ActiveLockdowns.Inc()
		return false, nil
	}

	l.state = StateLocking

	var channels []platform.Channel
	err = m.guard.Do(ctx, "list channels", func(ctx context.Context) error {
		var err error
		channels, err = m.platform.ListChannels(ctx, community)
		return err
	})
	if err != nil {
		l.state = StateUnlocked
		return false, fmt.Errorf("failed to list channels of guild %s: %w", community, err)
	}

	now := m.opts.Clock.Now()
	rec = &models.LockdownRecord{
		Community: community,
		Active:    true,
		Reason:    reason,
		LockedAt:  now,
		Mapping:   make(map[string]models.Overlay, len(channels)),
	}
	for i := range channels {
		if channels[i].Kind.Restrictable() {
			rec.Mapping[channels[i].ID] = channels[i].Overwrite(community)
		}
	}
	if !manual && m.opts.AutoUnlockAfter > 0 {
		rec.AutoUnlockAt = now.Add(m.opts.AutoUnlockAfter)
	}

	if err := m.store.SaveLockdown(ctx, rec); err != nil {
		l.state = StateUnlocked
		return false, fmt.Errorf("%w: failed to persist snapshots: %v", ErrStoreUnavailable, err)
	}

	failed := m.forEach(ctx, rec.Mapping, "lock channel", func(ctx context.Context, channel string, prev models.Overlay) error {
		return m.platform.EditChannelOverwrite(ctx, channel, community, Restrict(prev))
	})

	l.state = StateLocked
	metrics.Lockdowns.WithLabelValues("lock").Inc()
	metrics.ActiveLockdowns.Inc()
	logging.Warn("Lockdown triggered in guild %s: %s (%d channels, %d failed)", community, reason, len(rec.Mapping), failed)

	if !rec.AutoUnlockAt.IsZero() {
		m.schedule(l, community, m.opts.AutoUnlockAfter)
	}
	return true, nil
}

// Unlock restores every snapshotted overwrite and then clears the record.
// Restore failures are logged per channel and do not keep the community
// locked. A manual unlock cancels any scheduled automatic unlock. Unlocking
// a community that is not locked does nothing and returns false.
func (m *Manager) Unlock(ctx context.Context, community string, manual bool) (bool, error) {
	l := m.lockFor(community)
	l.mu.Lock()
	defer l.mu.Unlock()

	if manual {
		m.cancelScheduled(l)
	}
	return m.unlockLocked(ctx, community, l)
}

func (m *Manager) unlockLocked(ctx context.Context, community string, l *communityLock) (bool, error) {
	rec, err := m.store.GetLockdown(ctx, community)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !rec.Residual() {
		// Nothing persisted to restore, memory is reset to match.
		l.state = StateUnlocked
		return false, nil
	}

	if rec.Active != (len(rec.Mapping) > 0) {
		logging.Warn("Inconsistent lockdown record for guild %s (active=%t, %d snapshots), restoring what is present",
			community, rec.Active, len(rec.Mapping))
	}

	l.state = StateUnlocking
	m.cancelScheduled(l)

	failed := m.forEach(ctx, rec.Mapping, "restore channel", func(ctx context.Context, channel string, prev models.Overlay) error {
		if !prev.Existed {
			return m.platform.DeleteChannelOverwrite(ctx, channel, community)
		}
		return m.platform.EditChannelOverwrite(ctx, channel, community, prev)
	})

	cleared := &models.LockdownRecord{Community: community, Mapping: map[string]models.Overlay{}}
	if err := m.store.SaveLockdown(ctx, cleared); err != nil {
		l.state = StateLocked
		logging.Critical("Guild %s restored but lockdown record could not be cleared: %v", community, err)
		return false, fmt.Errorf("%w: failed to clear record: %v", ErrStoreUnavailable, err)
	}

	l.state = StateUnlocked
	metrics.Lockdowns.WithLabelValues("unlock").Inc()
	metrics.ActiveLockdowns.Dec()
	logging.Info("Lockdown lifted in guild %s (%d channels, %d failed)", community, len(rec.Mapping), failed)
	return true, nil
}

// forEach runs fn for every snapshot with bounded parallelism and returns the
// number of failed calls.
func (m *Manager) forEach(ctx context.Context, mapping map[string]models.Overlay, op string,
	fn func(ctx context.Context, channel string, prev models.Overlay) error) int {
	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)
	for channel, prev := range mapping {
		channel, prev := channel, prev // per-iteration copy (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			ok := m.guard.Try(ctx, op, channel, func(ctx context.Context) error {
				return fn(ctx, channel, prev)
			})
			if !ok {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

// schedule arms the automatic unlock. The caller holds l.mu.
func (m *Manager) schedule(l *communityLock, community string, after time.Duration) {
	m.cancelScheduled(l)
	token := uuid.NewString()
	l.token = token
	l.timer = time.AfterFunc(after, func() { m.expire(community, token) })
}

// cancelScheduled disarms the automatic unlock. The caller holds l.mu. A
// timer that already fired finds its token gone and does nothing.
func (m *Manager) cancelScheduled(l *communityLock) {
	l.token = ""
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (m *Manager) expire(community, token string) {
	l := m.lockFor(community)
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token != token || m.ctx.Err() != nil {
		return
	}
	l.token = ""
	l.timer = nil

	ctx, cancel := context.WithTimeout(m.ctx, autoUnlockTimeout)
	defer cancel()
	if _, err := m.unlockLocked(ctx, community, l); err != nil {
		logging.Error("Automatic unlock of guild %s failed: %v", community, err)
	}
}

// Recover reloads persisted lockdowns as locked and reschedules their
// automatic unlocks for the remaining time.
func (m *Manager) Recover(ctx context.Context) error {
	records, err := m.store.ListLockdowns(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := m.opts.Clock.Now()
	for _, rec := range records {
		l := m.lockFor(rec.Community)
		l.mu.Lock()
		if l.state != StateLocked {
			metrics.ActiveLockdowns.Inc()
		}
		l.state = StateLocked
		if !rec.AutoUnlockAt.IsZero() {
			m.schedule(l, rec.Community, max(rec.AutoUnlockAt.Sub(now), 0))
		}
		l.mu.Unlock()
		logging.Warn("Guild %s resumed as locked (%d snapshots, reason: %s)", rec.Community, len(rec.Mapping), rec.Reason)
	}
	return nil
}

// Status reports the in-memory state and the persisted record. A persisted
// record with residue always reports as locked.
func (m *Manager) Status(ctx context.Context, community string) (*Status, error) {
	rec, err := m.store.GetLockdown(ctx, community)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	l := m.lockFor(community)
	l.mu.Lock()
	st := l.state
	l.mu.Unlock()

	if st == StateUnlocked && rec.Residual() {
		st = StateLocked
	}
	return &Status{State: st, Record: rec}, nil
}

// IsLocked reports the in-memory state only.
func (m *Manager) IsLocked(community string) bool {
	l, ok := m.locks.Load(community)
	if !ok {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateLocked
}

// Close stops every scheduled unlock.
func (m *Manager) Close() {
	m.cancel()
	m.locks.Range(func(_ string, l *communityLock) bool {
		l.mu.Lock()
		m.cancelScheduled(l)
		l.mu.Unlock()
		return true
	})
}

// Restrict returns prev with the lockdown permissions moved to deny.
func Restrict(prev models.Overlay) models.Overlay {
	return models.Overlay{
		Allow: prev.Allow &^ platform.LockdownMask,
		Deny:  prev.Deny | platform.LockdownMask,
	}
}
