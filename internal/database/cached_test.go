package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-threatguard/internal/config"
)

func TestCachedStoreDefaultsForUnknownCommunity(t *testing.T) {
	s := NewCachedStore(NewMemStore(), nil, 16, time.Minute)

	cfg, err := s.CommunityConfig(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", cfg.CommunityID)
	assert.Equal(t, config.DefaultLadder, cfg.Ladder)
	assert.True(t, cfg.AntiNuke)
}

func TestCachedStoreWritesEvict(t *testing.T) {
	ctx := context.Background()
	s := NewCachedStore(NewMemStore(), nil, 16, time.Hour)

	cfg, err := s.CommunityConfig(ctx, "g1")
	require.NoError(t, err)
	require.True(t, cfg.AntiRaid)

	cfg.AntiRaid = false
	require.NoError(t, s.UpsertConfig(ctx, cfg))

	cfg, err = s.CommunityConfig(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, cfg.AntiRaid)

	require.NoError(t, s.AddTrust(ctx, TrustEntry{CommunityID: "g1", TargetID: "u1", Kind: TrustUser}))
	require.NoError(t, s.AddTrust(ctx, TrustEntry{CommunityID: "g1", TargetID: "r1", Kind: TrustRole}))

	cfg, err = s.CommunityConfig(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, cfg.IsTrustedUser("u1"))
	assert.True(t, cfg.HasTrustedRole([]string{"r1"}))

	_, err = s.RemoveTrust(ctx, "g1", "u1")
	require.NoError(t, err)
	cfg, err = s.CommunityConfig(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, cfg.IsTrustedUser("u1"))
}

func TestCachedStoreNormalizesInvalidLadder(t *testing.T) {
	ctx := context.Background()
	backing := NewMemStore()
	bad := config.DefaultCommunityConfig()
	bad.CommunityID = "g1"
	bad.Ladder = config.Ladder{Warn: 10, RoleStrip: 5, Kick: 15, Ban: 20, Lockdown: 30}
	require.NoError(t, backing.UpsertConfig(ctx, bad))

	cfg, err := NewCachedStore(backing, nil, 16, time.Minute).CommunityConfig(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultLadder, cfg.Ladder)
}

func TestCachedStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewCachedStore(NewMemStore(), nil, 16, time.Hour)

	first, err := s.CommunityConfig(ctx, "g1")
	require.NoError(t, err)
	first.SpamLimit = 99

	second, err := s.CommunityConfig(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCommunityConfig().SpamLimit, second.SpamLimit)
}
