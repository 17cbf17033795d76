package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"go-threatguard/internal/config"
	"go-threatguard/internal/models"
)

const (
	redisPrefix      = "threatguard/"
	redisLockdownSet = redisPrefix + "lockdowns"
	redisLogCap      = 1000
)

// RedisStore keeps one JSON document per key. Lockdown records live in a
// single key so every save replaces state and mapping together.
type RedisStore struct {
	Client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return &RedisStore{Client: rdb}, nil
}

func configKey(id string) string   { return redisPrefix + "config/" + id }
func trustKey(id string) string    { return redisPrefix + "trust/" + id }
func lockdownKey(id string) string { return redisPrefix + "lockdown/" + id }
func threatKey(id string) string   { return redisPrefix + "threats/" + id }

func (s *RedisStore) GetConfig(ctx context.Context, communityID string) (*config.CommunityConfig, error) {
	raw, err := s.Client.Get(ctx, configKey(communityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.CommunityConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("corrupt config for guild %s: %w", communityID, err)
	}
	cfg.CommunityID = communityID
	return &cfg, nil
}

func (s *RedisStore) UpsertConfig(ctx context.Context, cfg *config.CommunityConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, configKey(cfg.CommunityID), raw, 0).Err()
}

func (s *RedisStore) ListTrust(ctx context.Context, communityID string) ([]TrustEntry, error) {
	fields, err := s.Client.HGetAll(ctx, trustKey(communityID)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]TrustEntry, 0, len(fields))
	for _, raw := range fields {
		var e TrustEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

func (s *RedisStore) AddTrust(ctx context.Context, e TrustEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.Client.HSet(ctx, trustKey(e.CommunityID), e.TargetID, raw).Err()
}

func (s *RedisStore) RemoveTrust(ctx context.Context, communityID, targetID string) (bool, error) {
	n, err := s.Client.HDel(ctx, trustKey(communityID), targetID).Result()
	return n > 0, err
}

func (s *RedisStore) GetLockdown(ctx context.Context, communityID string) (*models.LockdownRecord, error) {
	raw, err := s.Client.Get(ctx, lockdownKey(communityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return emptyLockdown(communityID), nil
	}
	if err != nil {
		return nil, err
	}
	var rec models.LockdownRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("corrupt lockdown record for guild %s: %w", communityID, err)
	}
	if rec.Mapping == nil {
		rec.Mapping = map[string]models.Overlay{}
	}
	rec.Community = communityID
	return &rec, nil
}

func (s *RedisStore) SaveLockdown(ctx context.Context, rec *models.LockdownRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, lockdownKey(rec.Community), raw, 0)
		if rec.Residual() {
			pipe.SAdd(ctx, redisLockdownSet, rec.Community)
		} else {
			pipe.SRem(ctx, redisLockdownSet, rec.Community)
		}
		return nil
	})
	return err
}

func (s *RedisStore) ListLockdowns(ctx context.Context) ([]*models.LockdownRecord, error) {
	ids, err := s.Client.SMembers(ctx, redisLockdownSet).Result()
	if err != nil {
		return nil, err
	}
	var out []*models.LockdownRecord
	for _, id := range ids {
		rec, err := s.GetLockdown(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec.Residual() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *RedisStore) AppendThreatLog(ctx context.Context, e *models.ThreatLogEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	key := threatKey(e.Community)
	_, err = s.Client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, raw)
		pipe.LTrim(ctx, key, 0, redisLogCap-1)
		return nil
	})
	return err
}

func (s *RedisStore) RecentThreatLogs(ctx context.Context, communityID string, limit int) ([]*models.ThreatLogEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	items, err := s.Client.LRange(ctx, threatKey(communityID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*models.ThreatLogEntry, 0, len(items))
	for _, raw := range items {
		var e models.ThreatLogEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
