package database

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"go-threatguard/internal/config"
	"go-threatguard/internal/logging"
	"go-threatguard/internal/metrics"
)

// CachedStore puts a short-lived read-through cache in front of community
// configs. Lockdown records and the threat log always go to the backing
// store. Writes through this store evict the cached entry, so a read after
// a write sees the write.
type CachedStore struct {
	Store
	defaults *config.CommunityConfig
	configs  *expirable.LRU[string, *config.CommunityConfig]
}

var _ config.Source = (*CachedStore)(nil)

func NewCachedStore(backing Store, defaults *config.CommunityConfig, capacity int, ttl time.Duration) *CachedStore {
	if defaults == nil {
		defaults = config.DefaultCommunityConfig()
	}
	if capacity <= 0 {
		capacity = 1024
	}
	return &CachedStore{
		Store:    backing,
		defaults: defaults,
		configs:  expirable.NewLRU[string, *config.CommunityConfig](capacity, nil, ttl),
	}
}

// CommunityConfig returns the normalized config of a community with its trust
// lists merged in. Unconfigured communities get the defaults.
func (s *CachedStore) CommunityConfig(ctx context.Context, communityID string) (*config.CommunityConfig, error) {
	if cfg, ok := s.configs.Get(communityID); ok {
		metrics.ConfigCache.WithLabelValues("hit").Inc()
		return cfg.Clone(), nil
	}
	metrics.ConfigCache.WithLabelValues("miss").Inc()

	cfg, err := s.Store.GetConfig(ctx, communityID)
	if errors.Is(err, ErrNotFound) {
		cfg = s.defaults.Clone()
		cfg.CommunityID = communityID
	} else if err != nil {
		return nil, err
	}

	if err := cfg.Normalize(); err != nil {
		logging.Warn("Guild %s has an invalid threshold ladder, using defaults: %v", communityID, err)
	}

	trust, err := s.Store.ListTrust(ctx, communityID)
	if err != nil {
		return nil, err
	}
	cfg.TrustedUsers = nil
	cfg.TrustedRoles = nil
	for _, e := range trust {
		switch e.Kind {
		case TrustRole:
			cfg.TrustedRoles = append(cfg.TrustedRoles, e.TargetID)
		default:
			cfg.TrustedUsers = append(cfg.TrustedUsers, e.TargetID)
		}
	}

	s.configs.Add(communityID, cfg)
	return cfg.Clone(), nil
}

func (s *CachedStore) UpsertConfig(ctx context.Context, cfg *config.CommunityConfig) error {
	defer s.configs.Remove(cfg.CommunityID)
	return s.Store.UpsertConfig(ctx, cfg)
}

func (s *CachedStore) AddTrust(ctx context.Context, e TrustEntry) error {
	defer s.configs.Remove(e.CommunityID)
	return s.Store.AddTrust(ctx, e)
}

func (s *CachedStore) RemoveTrust(ctx context.Context, communityID, targetID string) (bool, error) {
	defer s.configs.Remove(communityID)
	return s.Store.RemoveTrust(ctx, communityID, targetID)
}
