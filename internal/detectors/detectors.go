package detectors

import (
	"context"
	"time"

	"go-threatguard/internal/config"
	"go-threatguard/internal/logging"
	"go-threatguard/internal/metrics"
	"go-threatguard/pkg/util"
)

// Detectors bundles the windowed detectors and runs their background sweep.
type Detectors struct {
	Scorer *Scorer
	Nuke   *NukeTracker
	Spam   *SpamDetector
	Raid   *RaidDetector

	configs  config.Source
	defaults *config.CommunityConfig
}

func New(configs config.Source, clock util.Clock) *Detectors {
	if clock == nil {
		clock = util.SystemClock()
	}
	return &Detectors{
		Scorer:   NewScorer(clock),
		Nuke:     NewNukeTracker(clock),
		Spam:     NewSpamDetector(clock),
		Raid:     NewRaidDetector(clock),
		configs:  configs,
		defaults: config.DefaultCommunityConfig(),
	}
}

// Sweep runs one decay pass over every detector.
func (d *Detectors) Sweep(ctx context.Context) {
	memo := &configMemo{source: d.configs, defaults: d.defaults, seen: map[string]*config.CommunityConfig{}}
	d.Scorer.decay(ctx, memo)
	d.Nuke.expire(ctx, memo)
	d.Spam.expire(ctx, memo)
	d.Raid.expire(ctx, memo)
	metrics.TrackedActors.Set(float64(d.Scorer.Tracked()))
}

// Run sweeps every tick until ctx is done. beat, when set, is called after
// each sweep.
func (d *Detectors) Run(ctx context.Context, tick time.Duration, beat func()) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	logging.Info("Decay loop started (tick %s)", tick)
	for {
		select {
		case <-ctx.Done():
			logging.Info("Decay loop stopped")
			return
		case <-ticker.C:
			d.Sweep(ctx)
			if beat != nil {
				beat()
			}
		}
	}
}

// configMemo resolves each community config once per sweep.
type configMemo struct {
	source   config.Source
	defaults *config.CommunityConfig
	seen     map[string]*config.CommunityConfig
}

func (m *configMemo) get(ctx context.Context, community string) *config.CommunityConfig {
	if cfg, ok := m.seen[community]; ok {
		return cfg
	}
	cfg := m.defaults
	if m.source != nil {
		resolved, err := m.source.CommunityConfig(ctx, community)
		if err != nil {
			logging.Debug("Decay sweep using default config for guild %s: %v", community, err)
		} else {
			cfg = resolved
		}
	}
	m.seen[community] = cfg
	return cfg
}
