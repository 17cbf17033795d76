package database

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"go-threatguard/internal/config"
	"go-threatguard/internal/models"
)

// MemStore keeps everything in process memory. Used by tests and by the
// "memory" store driver for dry runs.
type MemStore struct {
	mu        sync.RWMutex
	configs   map[string]*config.CommunityConfig
	trust     map[string]map[string]TrustEntry
	lockdowns map[string]*models.LockdownRecord
	logs      map[string][]*models.ThreatLogEntry
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		configs:   make(map[string]*config.CommunityConfig),
		trust:     make(map[string]map[string]TrustEntry),
		lockdowns: make(map[string]*models.LockdownRecord),
		logs:      make(map[string][]*models.ThreatLogEntry),
	}
}

func (s *MemStore) GetConfig(_ context.Context, communityID string) (*config.CommunityConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[communityID]
	if !ok {
		return nil, ErrNotFound
	}
	return cfg.Clone(), nil
}

func (s *MemStore) UpsertConfig(_ context.Context, cfg *config.CommunityConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cfg.Clone()
	stored.TrustedUsers = nil
	stored.TrustedRoles = nil
	s.configs[cfg.CommunityID] = stored
	return nil
}

func (s *MemStore) ListTrust(_ context.Context, communityID string) ([]TrustEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]TrustEntry, 0, len(s.trust[communityID]))
	for _, e := range s.trust[communityID] {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

func (s *MemStore) AddTrust(_ context.Context, e TrustEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if s.trust[e.CommunityID] == nil {
		s.trust[e.CommunityID] = make(map[string]TrustEntry)
	}
	s.trust[e.CommunityID][e.TargetID] = e
	return nil
}

func (s *MemStore) RemoveTrust(_ context.Context, communityID, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trust[communityID][targetID]; !ok {
		return false, nil
	}
	delete(s.trust[communityID], targetID)
	return true, nil
}

func (s *MemStore) GetLockdown(_ context.Context, communityID string) (*models.LockdownRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.lockdowns[communityID]
	if !ok {
		return emptyLockdown(communityID), nil
	}
	return copyLockdown(rec), nil
}

func (s *MemStore) SaveLockdown(_ context.Context, rec *models.LockdownRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockdowns[rec.Community] = copyLockdown(rec)
	return nil
}

func (s *MemStore) ListLockdowns(_ context.Context) ([]*models.LockdownRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.LockdownRecord
	for _, rec := range s.lockdowns {
		if rec.Residual() {
			out = append(out, copyLockdown(rec))
		}
	}
	return out, nil
}

func (s *MemStore) AppendThreatLog(_ context.Context, e *models.ThreatLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := *e
	s.logs[e.Community] = append(s.logs[e.Community], &entry)
	return nil
}

func (s *MemStore) RecentThreatLogs(_ context.Context, communityID string, limit int) ([]*models.ThreatLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.logs[communityID]
	out := make([]*models.ThreatLogEntry, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		entry := *all[i]
		out = append(out, &entry)
	}
	return out, nil
}

func (s *MemStore) Close() error { return nil }

func copyLockdown(rec *models.LockdownRecord) *models.LockdownRecord {
	out := *rec
	out.Mapping = maps.Clone(rec.Mapping)
	if out.Mapping == nil {
		out.Mapping = map[string]models.Overlay{}
	}
	return &out
}
