package trust

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-threatguard/internal/config"
	"go-threatguard/internal/database"
	"go-threatguard/internal/platform"
	"go-threatguard/internal/platform/platformtest"
)

func setup() (*Registry, *platformtest.Fake, *config.CommunityConfig) {
	fake := platformtest.NewFake("bot")
	fake.AddCommunity(&platform.Community{ID: "g1", OwnerID: "owner", Roles: []platform.Role{
		{ID: "g1", Permissions: platform.PermSendMessages},
		{ID: "admins", Permissions: platform.PermAdministrator},
		{ID: "helpers", Permissions: platform.PermKickMembers},
	}})
	fake.AddMember("g1", &platform.Member{ID: "admin", Roles: []string{"admins"}})
	fake.AddMember("g1", &platform.Member{ID: "helper", Roles: []string{"helpers"}})
	fake.AddMember("g1", &platform.Member{ID: "plain"})

	cfg := config.DefaultCommunityConfig()
	cfg.CommunityID = "g1"
	return NewRegistry(database.NewMemStore(), fake, platform.NewGuard(0, 1, 1, 0)), fake, cfg
}

func TestIsExempt(t *testing.T) {
	r, _, cfg := setup()
	cfg.TrustedUsers = []string{"listed"}
	cfg.TrustedRoles = []string{"helpers"}
	ctx := context.Background()

	assert.True(t, r.IsExempt(ctx, cfg, "bot"))
	assert.True(t, r.IsExempt(ctx, cfg, "listed"))
	assert.True(t, r.IsExempt(ctx, cfg, "owner"))
	assert.True(t, r.IsExempt(ctx, cfg, "admin"))
	assert.True(t, r.IsExempt(ctx, cfg, "helper"))
	assert.False(t, r.IsExempt(ctx, cfg, "plain"))
	assert.False(t, r.IsExempt(ctx, cfg, "gone"))
	assert.False(t, r.IsExempt(ctx, cfg, ""))
}

func TestIsExemptWithoutPlatformFallsBackToWhitelist(t *testing.T) {
	r, _, cfg := setup()
	cfg.CommunityID = "unknown"
	cfg.TrustedUsers = []string{"listed"}
	ctx := context.Background()

	assert.True(t, r.IsExempt(ctx, cfg, "listed"))
	assert.False(t, r.IsExempt(ctx, cfg, "owner"))
}

func TestAddRemoveList(t *testing.T) {
	r, _, _ := setup()
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "g1", "u1", database.TrustUser, "owner"))
	require.NoError(t, r.Add(ctx, "g1", "r1", database.TrustRole, "owner"))
	assert.Error(t, r.Add(ctx, "g1", "", database.TrustUser, "owner"))

	entries, err := r.List(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	removed, err := r.Remove(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.Remove(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.False(t, removed)
}
