package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-threatguard/internal/config"
	"go-threatguard/internal/database"
	"go-threatguard/internal/forensics"
	"go-threatguard/internal/models"
	"go-threatguard/internal/platform"
	"go-threatguard/internal/platform/platformtest"
	"go-threatguard/pkg/util"
)

const guild = "g1"

// orderLocker records lock calls and how many bans preceded each one.
type orderLocker struct {
	fake       *platformtest.Fake
	bansAtLock []int
	fail       error
	lastManual bool
	lastReason string
}

func (l *orderLocker) Trigger(_ context.Context, _, reason string, manual bool) (bool, error) {
	l.bansAtLock = append(l.bansAtLock, l.fake.Count("ban:"))
	l.lastManual = manual
	l.lastReason = reason
	if l.fail != nil {
		return false, l.fail
	}
	return true, nil
}

type fixture struct {
	exec   *Executor
	fake   *platformtest.Fake
	locker *orderLocker
	store  *database.MemStore
	cfg    *config.CommunityConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := platformtest.NewFake("bot")
	fake.AddCommunity(&platform.Community{ID: guild, OwnerID: "owner", Roles: []platform.Role{
		{ID: guild, Position: 0, Permissions: platform.PermSendMessages},
		{ID: "admin", Position: 5, Permissions: platform.PermAdministrator},
		{ID: "mod", Position: 4, Permissions: platform.PermKickMembers | platform.PermBanMembers},
		{ID: "chat", Position: 2, Permissions: platform.PermSendMessages},
		{ID: "integration", Position: 3, Permissions: platform.PermManageRoles, Managed: true},
		{ID: "botrole", Position: 8, Permissions: platform.PermAdministrator},
	}})
	fake.AddMember(guild, &platform.Member{ID: "bot", Roles: []string{"botrole"}})
	fake.AddMember(guild, &platform.Member{ID: "u1", Roles: []string{"admin", "mod", "chat", "integration"}})

	store := database.NewMemStore()
	locker := &orderLocker{fake: fake}
	clock := util.NewManualClock(time.Unix(1_700_000_000, 0))
	exec := New(fake, platform.NewGuard(0, 1, 1, 0), locker, forensics.NewThreatLog(store, nil, nil), clock)

	cfg := config.DefaultCommunityConfig()
	cfg.CommunityID = guild
	return &fixture{exec: exec, fake: fake, locker: locker, store: store, cfg: cfg}
}

func (f *fixture) logs(t *testing.T) []*models.ThreatLogEntry {
	t.Helper()
	logs, err := f.store.RecentThreatLogs(context.Background(), guild, 100)
	require.NoError(t, err)
	return logs
}

func TestApplyWritesOneLogPerCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	punishments := []models.Punishment{
		models.PunishmentNone, models.PunishmentExempt, models.PunishmentWarn,
		models.PunishmentTimeout, models.PunishmentKick, models.PunishmentBan,
	}
	for _, p := range punishments {
		f.exec.Apply(ctx, f.cfg, "u1", p, Detail{Score: 3, ActionType: models.ActionTypeThreatScore})
	}

	logs := f.logs(t)
	require.Len(t, logs, len(punishments))
	applied := map[string]string{}
	for _, l := range logs {
		applied[l.Punishment] = l.Applied
		assert.Equal(t, "Threat score 3", l.Reason)
	}
	assert.Equal(t, AppliedNone, applied["NONE"])
	assert.Equal(t, AppliedExempted, applied["EXEMPT"])
	assert.Equal(t, AppliedLogged, applied["WARN"])
	assert.Equal(t, AppliedDone, applied["BAN"])

	assert.Equal(t, 1, f.fake.Count("timeout:u1"))
	assert.Equal(t, 1, f.fake.Count("kick:u1"))
	assert.Equal(t, 1, f.fake.Count("ban:u1"))
}

func TestApplyNoneTouchesNothing(t *testing.T) {
	f := newFixture(t)

	got := f.exec.Apply(context.Background(), f.cfg, "u1", models.PunishmentNone, Detail{})
	assert.Equal(t, AppliedNone, got)
	assert.Empty(t, f.fake.Calls())
	assert.Len(t, f.logs(t), 1)
}

func TestApplyBanFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.fake.FailOn("ban:u1", &platform.StatusError{Op: "ban", Code: 403})

	got := f.exec.Apply(context.Background(), f.cfg, "u1", models.PunishmentBan, Detail{Score: 22})
	assert.Equal(t, AppliedFailed, got)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, AppliedFailed, logs[0].Applied)
	assert.Equal(t, 22, logs[0].Score)
}

func TestLockdownLocksBeforeBanning(t *testing.T) {
	f := newFixture(t)

	got := f.exec.Apply(context.Background(), f.cfg, "u1", models.PunishmentLockdown, Detail{Score: 30, Reason: "nuke"})
	assert.Equal(t, AppliedDone, got)
	assert.Equal(t, []int{0}, f.locker.bansAtLock)
	assert.False(t, f.locker.lastManual)
	assert.Equal(t, "nuke", f.locker.lastReason)
	assert.Equal(t, 1, f.fake.Count("ban:u1"))
}

func TestLockdownFailureStillBans(t *testing.T) {
	f := newFixture(t)
	f.locker.fail = errors.New("store down")

	got := f.exec.Apply(context.Background(), f.cfg, "u1", models.PunishmentLockdown, Detail{Score: 30})
	assert.Equal(t, AppliedPartial, got)
	assert.Equal(t, 1, f.fake.Count("ban:u1"))
}

func TestRoleStripRemovalsAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.fake.FailOn("remove_role:admin", &platform.StatusError{Op: "remove role", Code: 403})

	got := f.exec.Apply(context.Background(), f.cfg, "u1", models.PunishmentRoleStrip, Detail{Score: 10})
	assert.Equal(t, AppliedPartial, got)
	assert.Equal(t, 1, f.fake.Count("remove_role:admin"))
	assert.Equal(t, 1, f.fake.Count("remove_role:mod"))
	assert.Zero(t, f.fake.Count("remove_role:chat"))
	assert.Zero(t, f.fake.Count("remove_role:integration"))
}

func TestRoleStripEditableMode(t *testing.T) {
	f := newFixture(t)
	f.cfg.RoleStripMode = config.StripEditable

	got := f.exec.Apply(context.Background(), f.cfg, "u1", models.PunishmentRoleStrip, Detail{Score: 10})
	assert.Equal(t, AppliedDone, got)
	assert.Equal(t, 3, f.fake.Count("remove_role:"))
	assert.Zero(t, f.fake.Count("remove_role:integration"))
}

func TestRoleStripWithoutMember(t *testing.T) {
	f := newFixture(t)

	got := f.exec.Apply(context.Background(), f.cfg, "ghost", models.PunishmentRoleStrip, Detail{Score: 10})
	assert.Equal(t, AppliedFailed, got)
	assert.Len(t, f.logs(t), 1)
}

func TestRoleStripNothingToRemove(t *testing.T) {
	f := newFixture(t)
	f.fake.AddMember(guild, &platform.Member{ID: "u2", Roles: []string{"chat"}})

	got := f.exec.Apply(context.Background(), f.cfg, "u2", models.PunishmentRoleStrip, Detail{Score: 10})
	assert.Equal(t, AppliedSkipped, got)
}

func TestContainLogsRaid(t *testing.T) {
	f := newFixture(t)

	got := f.exec.Contain(context.Background(), f.cfg, "Raid: 10 joins")
	assert.Equal(t, AppliedDone, got)
	assert.Equal(t, []int{0}, f.locker.bansAtLock)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionTypeRaid, logs[0].ActionType)
	assert.Empty(t, logs[0].Actor)
	assert.Equal(t, "LOCKDOWN", logs[0].Punishment)
}

func TestStrippableRoles(t *testing.T) {
	community := &platform.Community{ID: guild, Roles: []platform.Role{
		{ID: guild, Permissions: platform.PermAdministrator},
		{ID: "a", Position: 6, Permissions: platform.PermManageGuild},
		{ID: "b", Position: 2, Permissions: platform.PermSendMessages},
		{ID: "m", Position: 1, Permissions: platform.PermAdministrator, Managed: true},
	}}
	roles := []string{guild, "a", "b", "m", "unknown"}

	assert.Equal(t, []string{"a"}, StrippableRoles(community, roles, config.StripElevated, 10))
	assert.Equal(t, []string{"b"}, StrippableRoles(community, roles, config.StripEditable, 5))
	assert.Empty(t, StrippableRoles(community, roles, config.StripEditable, -1))
}
