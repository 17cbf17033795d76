package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go-threatguard/internal/bot"
	"go-threatguard/internal/commands"
	"go-threatguard/internal/config"
	"go-threatguard/internal/correlator"
	"go-threatguard/internal/database"
	"go-threatguard/internal/decision"
	"go-threatguard/internal/detectors"
	"go-threatguard/internal/dispatcher"
	"go-threatguard/internal/forensics"
	"go-threatguard/internal/lockdown"
	"go-threatguard/internal/logging"
	"go-threatguard/internal/metrics"
	"go-threatguard/internal/notifier"
	"go-threatguard/internal/pipeline"
	"go-threatguard/internal/platform"
	"go-threatguard/internal/trust"
	"go-threatguard/internal/watchdog"
	"go-threatguard/pkg/util"
)

const decayLoop = "decay_loop"

type Components struct {
	Store       *database.CachedStore
	Session     *bot.Session
	Guard       *platform.Guard
	Trust       *trust.Registry
	Detectors   *detectors.Detectors
	Lockdown    *lockdown.Manager
	Correlator  *correlator.AuditCorrelator
	Executor    *dispatcher.Executor
	Pipeline    *pipeline.Orchestrator
	Commands    *commands.Handler
	ThreatLog   *forensics.ThreatLog
	ForensicLog *forensics.ForensicLogger
	Watchdog    *watchdog.Watchdog
	Exporter    *metrics.Exporter

	cancel context.CancelFunc
	done   chan struct{}
}

func Wire(cfg *config.Config, backing database.Store) (*Components, error) {
	logging.Info("Wiring components...")

	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("no bot token configured")
	}

	clock := util.SystemClock()
	store := database.NewCachedStore(backing, &cfg.Defaults, cfg.Store.CacheCap, cfg.Store.CacheTTL.Std())

	session, err := bot.New(cfg.Bot.Token)
	if err != nil {
		return nil, err
	}
	if cfg.Network.HTTPPoolSize > 0 {
		fast := dispatcher.NewBanRequestExecutor(
			dispatcher.NewHTTPPool(cfg.Network.HTTPPoolSize),
			dispatcher.NewRateLimitMonitor(),
			cfg.Network.APIBaseURL,
			cfg.Bot.Token,
		)
		session.UseFastPath(fast)
		logging.Info("Punishment fast path enabled (%d clients)", cfg.Network.HTTPPoolSize)
	}

	nc := cfg.Network
	guard := platform.NewGuard(nc.RequestsPerSecond, nc.Burst, nc.RetryAttempts, nc.RetryBackoff.Std())

	var forensicLog *forensics.ForensicLogger
	if cfg.Logging.ForensicPath != "" {
		if err := ensureDir(cfg.Logging.ForensicPath); err != nil {
			return nil, err
		}
		forensicLog, err = forensics.NewForensicLogger(cfg.Logging.ForensicPath)
		if err != nil {
			logging.Warn("Failed to initialize forensic logger: %v", err)
		}
	}

	sinks := notifier.Multi{notifier.NewDiscordSink(session.Discord())}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notifier.NewWebhookSink(cfg.Notify.WebhookURL))
	}
	threatLog := forensics.NewThreatLog(store, forensicLog, sinks)

	registry := trust.NewRegistry(store, session, guard)
	dets := detectors.New(store, clock)
	locks := lockdown.NewManager(store, session, guard, lockdown.Options{
		AutoUnlockAfter: cfg.Engine.AutoUnlockAfter.Std(),
		Concurrency:     cfg.Engine.LockdownConcurrency,
		Clock:           clock,
	})
	corr := correlator.New(session, guard, registry, correlator.Options{
		Delay:      cfg.Engine.AuditDelay.Std(),
		MaxAge:     cfg.Engine.AuditMaxAge.Std(),
		IgnoreBots: cfg.Engine.IgnoreBotExecutors,
		Clock:      clock,
	})
	executor := dispatcher.New(session, guard, locks, threatLog, clock)
	orchestrator := pipeline.New(store, dets, decision.NewPolicy(registry), corr, executor)

	wd := watchdog.NewWatchdog(5 * time.Second)
	wd.RegisterComponent(decayLoop, 10*cfg.Engine.DecayTick.Std())

	var exporter *metrics.Exporter
	if cfg.Metrics.Listen != "" {
		exporter = metrics.NewExporter(cfg.Metrics.Listen)
	}

	logging.Info("Component wiring complete")
	return &Components{
		Store:       store,
		Session:     session,
		Guard:       guard,
		Trust:       registry,
		Detectors:   dets,
		Lockdown:    locks,
		Correlator:  corr,
		Executor:    executor,
		Pipeline:    orchestrator,
		Commands:    commands.NewHandler(session, locks, registry, store, threatLog, wd),
		ThreatLog:   threatLog,
		ForensicLog: forensicLog,
		Watchdog:    wd,
		Exporter:    exporter,
	}, nil
}

func StartAll(ctx context.Context, cfg *config.Config, c *Components) error {
	logging.Info("Starting components...")

	if c.Exporter != nil {
		c.Exporter.Start()
	}

	if err := c.Lockdown.Recover(ctx); err != nil {
		return fmt.Errorf("lockdown recovery failed: %w", err)
	}

	c.Session.SetupEventHandlers(c.Pipeline, c.Detectors.Scorer)
	c.Session.Discord().AddHandler(c.Commands.HandleInteraction)
	if err := c.Session.Connect(); err != nil {
		return err
	}
	if err := c.Session.RegisterCommands(cfg.Bot.ClientID, commands.GetAllCommands()); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.Watchdog.Run(loopCtx)
	go func() {
		defer close(c.done)
		c.Detectors.Run(loopCtx, cfg.Engine.DecayTick.Std(), c.Watchdog.Beat(decayLoop))
	}()

	logging.Info("All components started")
	return nil
}
