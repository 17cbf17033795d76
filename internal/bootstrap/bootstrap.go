package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go-threatguard/internal/config"
	"go-threatguard/internal/database"
	"go-threatguard/internal/logging"
)

type Bootstrap struct {
	Config      *config.Config
	Components  *Components
	initialized bool
}

func New(cfg *config.Config) *Bootstrap {
	return &Bootstrap{Config: cfg}
}

func (b *Bootstrap) Initialize() error {
	if err := b.initializeLogging(); err != nil {
		return fmt.Errorf("logging init failed: %w", err)
	}

	store, err := openStore(b.Config.Store)
	if err != nil {
		return fmt.Errorf("store init failed: %w", err)
	}

	components, err := Wire(b.Config, store)
	if err != nil {
		store.Close()
		return fmt.Errorf("component wiring failed: %w", err)
	}
	b.Components = components

	b.initialized = true
	logging.Info("Bootstrap complete")
	return nil
}

func (b *Bootstrap) initializeLogging() error {
	lc := b.Config.Logging
	if err := ensureDir(lc.Path); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	return logging.InitGlobalLogger(logging.ParseLevel(lc.Level), lc.Path, int64(lc.MaxSizeMB)<<20)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if path == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func openStore(sc config.StoreConfig) (database.Store, error) {
	switch sc.Driver {
	case "memory":
		logging.Warn("Using in-memory store, lockdown state will not survive a restart")
		return database.NewMemStore(), nil
	case "redis":
		store, err := database.NewRedisStore(sc.RedisURL)
		if err != nil {
			return nil, err
		}
		logging.Info("Redis store connected")
		return store, nil
	case "", "sqlite":
		if err := ensureDir(sc.Path); err != nil {
			return nil, err
		}
		store, err := database.Open(sc.Path)
		if err != nil {
			return nil, err
		}
		logging.Info("SQLite store opened at %s", sc.Path)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

func (b *Bootstrap) Start(ctx context.Context) error {
	if !b.initialized {
		return fmt.Errorf("bootstrap not initialized")
	}
	return StartAll(ctx, b.Config, b.Components)
}

func (b *Bootstrap) Shutdown(ctx context.Context) error {
	if b.Components == nil {
		return nil
	}
	return Shutdown(ctx, b.Components)
}
