package lockdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-threatguard/internal/database"
	"go-threatguard/internal/models"
	"go-threatguard/internal/platform"
	"go-threatguard/internal/platform/platformtest"
)

const guild = "g1"

type flakyStore struct {
	*database.MemStore
	failSave bool
}

func (s *flakyStore) SaveLockdown(ctx context.Context, rec *models.LockdownRecord) error {
	if s.failSave {
		return errors.New("database is locked")
	}
	return s.MemStore.SaveLockdown(ctx, rec)
}

func newFixture(t *testing.T, opts Options) (*Manager, *platformtest.Fake, *flakyStore) {
	t.Helper()
	fake := platformtest.NewFake("bot")
	fake.AddCommunity(&platform.Community{ID: guild})
	fake.AddChannel(guild, &platform.Channel{
		ID:         "c1",
		Kind:       platform.ChannelText,
		Overwrites: map[string]models.Overlay{guild: {Allow: platform.PermSendMessages}},
	})
	fake.AddChannel(guild, &platform.Channel{ID: "c2", Kind: platform.ChannelVoice})
	fake.AddChannel(guild, &platform.Channel{ID: "c3", Kind: platform.ChannelCategory})

	store := &flakyStore{MemStore: database.NewMemStore()}
	m := NewManager(store, fake, platform.NewGuard(0, 1, 1, 0), opts)
	t.Cleanup(m.Close)
	return m, fake, store
}

func TestTriggerAndUnlockRestoreOverwrites(t *testing.T) {
	ctx := context.Background()
	m, fake, store := newFixture(t, Options{})

	locked, err := m.Trigger(ctx, guild, "raid", true)
	require.NoError(t, err)
	assert.True(t, locked)
	assert.True(t, m.IsLocked(guild))
	assert.Equal(t, 2, fake.Count("edit_overwrite"), "categories are not restricted")

	ov, ok := fake.Overwrite(guild, "c1", guild)
	require.True(t, ok)
	assert.Zero(t, ov.Allow&platform.PermSendMessages)
	assert.Equal(t, platform.LockdownMask, ov.Deny&platform.LockdownMask)
	_, ok = fake.Overwrite(guild, "c2", guild)
	assert.True(t, ok)

	rec, err := store.GetLockdown(ctx, guild)
	require.NoError(t, err)
	assert.True(t, rec.Active)
	assert.Equal(t, "raid", rec.Reason)
	assert.True(t, rec.AutoUnlockAt.IsZero(), "manual lockdowns do not expire")
	assert.Len(t, rec.Mapping, 2)

	unlocked, err := m.Unlock(ctx, guild, true)
	require.NoError(t, err)
	assert.True(t, unlocked)
	assert.False(t, m.IsLocked(guild))

	ov, ok = fake.Overwrite(guild, "c1", guild)
	require.True(t, ok)
	assert.Equal(t, platform.PermSendMessages, ov.Allow)
	assert.Zero(t, ov.Deny)
	_, ok = fake.Overwrite(guild, "c2", guild)
	assert.False(t, ok, "overwrites created by the lockdown are deleted")

	rec, err = store.GetLockdown(ctx, guild)
	require.NoError(t, err)
	assert.False(t, rec.Residual())
}

func TestTriggerAndUnlockAreIdempotent(t *testing.T) {
	ctx := context.Background()
	m, fake, _ := newFixture(t, Options{})

	locked, err := m.Trigger(ctx, guild, "first", true)
	require.NoError(t, err)
	require.True(t, locked)

	locked, err = m.Trigger(ctx, guild, "second", true)
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Equal(t, 1, fake.Count("list_channels"))

	unlocked, err := m.Unlock(ctx, guild, true)
	require.NoError(t, err)
	require.True(t, unlocked)

	unlocked, err = m.Unlock(ctx, guild, true)
	require.NoError(t, err)
	assert.False(t, unlocked)
	assert.Equal(t, 3, fake.Count("edit_overwrite"))
	assert.Equal(t, 1, fake.Count("delete_overwrite"))
}

func TestAutoUnlock(t *testing.T) {
	m, _, store := newFixture(t, Options{AutoUnlockAfter: 20 * time.Millisecond})

	locked, err := m.Trigger(context.Background(), guild, "nuke", false)
	require.NoError(t, err)
	require.True(t, locked)

	assert.Eventually(t, func() bool { return !m.IsLocked(guild) }, 2*time.Second, 5*time.Millisecond)
	rec, err := store.GetLockdown(context.Background(), guild)
	require.NoError(t, err)
	assert.False(t, rec.Residual())
}

func TestManualUnlockCancelsAutoUnlock(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newFixture(t, Options{AutoUnlockAfter: 50 * time.Millisecond})

	_, err := m.Trigger(ctx, guild, "nuke", false)
	require.NoError(t, err)
	_, err = m.Unlock(ctx, guild, true)
	require.NoError(t, err)

	locked, err := m.Trigger(ctx, guild, "manual", true)
	require.NoError(t, err)
	require.True(t, locked)

	time.Sleep(150 * time.Millisecond)
	assert.True(t, m.IsLocked(guild), "the cancelled timer must not lift the new lockdown")
}

func TestRecoverResumesLockedCommunities(t *testing.T) {
	ctx := context.Background()
	m, fake, store := newFixture(t, Options{})
	require.NoError(t, store.SaveLockdown(ctx, &models.LockdownRecord{
		Community: guild,
		Active:    true,
		Reason:    "before restart",
		Mapping:   map[string]models.Overlay{"c2": {}},
	}))

	require.NoError(t, m.Recover(ctx))
	assert.True(t, m.IsLocked(guild))

	locked, err := m.Trigger(ctx, guild, "again", true)
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Zero(t, fake.Count("list_channels"))

	unlocked, err := m.Unlock(ctx, guild, true)
	require.NoError(t, err)
	assert.True(t, unlocked)
	assert.Equal(t, 1, fake.Count("delete_overwrite:c2"))
}

func TestRecoverExpiredAutoUnlock(t *testing.T) {
	ctx := context.Background()
	m, _, store := newFixture(t, Options{})
	require.NoError(t, store.SaveLockdown(ctx, &models.LockdownRecord{
		Community:    guild,
		Active:       true,
		LockedAt:     time.Now().Add(-time.Hour),
		AutoUnlockAt: time.Now().Add(-time.Minute),
		Mapping:      map[string]models.Overlay{"c2": {}},
	}))

	require.NoError(t, m.Recover(ctx))
	assert.Eventually(t, func() bool { return !m.IsLocked(guild) }, 2*time.Second, 5*time.Millisecond)
}

func TestInconsistentRecordsCountAsLocked(t *testing.T) {
	ctx := context.Background()
	m, _, store := newFixture(t, Options{})

	// Active flag without snapshots.
	require.NoError(t, store.SaveLockdown(ctx, &models.LockdownRecord{Community: guild, Active: true}))
	st, err := m.Status(ctx, guild)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, st.State)

	unlocked, err := m.Unlock(ctx, guild, true)
	require.NoError(t, err)
	assert.True(t, unlocked)

	// Snapshots without the active flag.
	require.NoError(t, store.SaveLockdown(ctx, &models.LockdownRecord{
		Community: guild,
		Mapping:   map[string]models.Overlay{"c1": {Allow: platform.PermSendMessages, Existed: true}},
	}))
	locked, err := m.Trigger(ctx, guild, "raid", false)
	require.NoError(t, err)
	assert.False(t, locked, "residue blocks a fresh snapshot")

	unlocked, err = m.Unlock(ctx, guild, true)
	require.NoError(t, err)
	assert.True(t, unlocked)
	rec, err := store.GetLockdown(ctx, guild)
	require.NoError(t, err)
	assert.False(t, rec.Residual())
}

func TestRestoreFailureStillClears(t *testing.T) {
	ctx := context.Background()
	m, fake, store := newFixture(t, Options{})

	_, err := m.Trigger(ctx, guild, "raid", true)
	require.NoError(t, err)

	fake.FailOn("edit_overwrite:c1", &platform.StatusError{Op: "edit overwrite", Code: 403})
	unlocked, err := m.Unlock(ctx, guild, true)
	require.NoError(t, err)
	assert.True(t, unlocked)
	assert.False(t, m.IsLocked(guild))

	rec, err := store.GetLockdown(ctx, guild)
	require.NoError(t, err)
	assert.False(t, rec.Residual())
}

func TestTriggerStoreFailureAppliesNothing(t *testing.T) {
	ctx := context.Background()
	m, fake, store := newFixture(t, Options{})
	store.failSave = true

	locked, err := m.Trigger(ctx, guild, "raid", false)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, locked)
	assert.Zero(t, fake.Count("edit_overwrite"))
	assert.False(t, m.IsLocked(guild))
}

func TestRestrict(t *testing.T) {
	prev := models.Overlay{Allow: platform.PermSendMessages | platform.PermManageChannels, Deny: platform.PermMentionEveryone, Existed: true}
	got := Restrict(prev)

	assert.Equal(t, platform.PermManageChannels, got.Allow)
	assert.Equal(t, platform.PermMentionEveryone|platform.LockdownMask, got.Deny)
}

func TestLockUnlockRoundTripProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("unlock restores every overwrite the lockdown touched", prop.ForAll(
		func(allows, denies []int64) bool {
			ctx := context.Background()
			fake := platformtest.NewFake("bot")
			n := min(len(allows), len(denies))
			want := make(map[string]models.Overlay, n)
			for i := 0; i < n; i++ {
				id := string(rune('a'+i%26)) + string(rune('0'+i/26))
				ch := &platform.Channel{ID: id, Kind: platform.ChannelText}
				if i%3 != 0 {
					ov := models.Overlay{Allow: allows[i], Deny: denies[i]}
					ch.Overwrites = map[string]models.Overlay{guild: ov}
					want[id] = ov
				}
				fake.AddChannel(guild, ch)
			}

			m := NewManager(database.NewMemStore(), fake, platform.NewGuard(0, 1, 1, 0), Options{})
			defer m.Close()
			if _, err := m.Trigger(ctx, guild, "prop", true); err != nil {
				return false
			}
			if _, err := m.Unlock(ctx, guild, true); err != nil {
				return false
			}

			for i := 0; i < n; i++ {
				id := string(rune('a'+i%26)) + string(rune('0'+i/26))
				got, ok := fake.Overwrite(guild, id, guild)
				exp, existed := want[id]
				if ok != existed {
					return false
				}
				if existed && (got.Allow != exp.Allow || got.Deny != exp.Deny) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64()),
		gen.SliceOf(gen.Int64()),
	))

	properties.TestingRun(t)
}
