package platform

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-threatguard/internal/metrics"
	"go-threatguard/internal/models"
)

func TestGuardRetriesTransientFailures(t *testing.T) {
	g := NewGuard(0, 1, 3, time.Millisecond)

	calls := 0
	err := g.Do(context.Background(), "ban", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &StatusError{Op: "ban", Code: 502}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestGuardStopsOnPermanentFailure(t *testing.T) {
	g := NewGuard(0, 1, 5, time.Millisecond)

	calls := 0
	err := g.Do(context.Background(), "kick", func(ctx context.Context) error {
		calls++
		return &StatusError{Op: "kick", Code: 403, Message: "Missing Permissions"}
	})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 403, se.Code)
	assert.Equal(t, 1, calls)
}

func TestGuardGivesUpAfterAttempts(t *testing.T) {
	g := NewGuard(0, 1, 2, time.Millisecond)

	calls := 0
	err := g.Do(context.Background(), "ban", func(ctx context.Context) error {
		calls++
		return &StatusError{Op: "ban", Code: 429, RetryAfter: time.Millisecond}
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestGuardHonorsCancellation(t *testing.T) {
	g := NewGuard(0, 1, 3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	err := g.Do(ctx, "ban", func(ctx context.Context) error {
		cancel()
		return &StatusError{Op: "ban", Code: 500}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrySwallowsErrors(t *testing.T) {
	g := NewGuard(0, 1, 1, 0)

	assert.True(t, g.Try(context.Background(), "ok", "u1", func(ctx context.Context) error { return nil }))
	assert.False(t, g.Try(context.Background(), "gone", "u1", func(ctx context.Context) error {
		return &StatusError{Op: "gone", Code: 404}
	}))
}

func seriesCount(c prometheus.Collector) int {
	ch := make(chan prometheus.Metric, 256)
	c.Collect(ch)
	close(ch)
	return len(ch)
}

func TestTryLabelsByOperationOnly(t *testing.T) {
	g := NewGuard(0, 1, 1, 0)
	before := seriesCount(metrics.PlatformCalls)

	for i := 0; i < 50; i++ {
		g.Try(context.Background(), "label check", fmt.Sprintf("user%d", i), func(ctx context.Context) error { return nil })
	}
	assert.Equal(t, before+1, seriesCount(metrics.PlatformCalls))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&StatusError{Code: 429}))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", &StatusError{Code: 503})))
	assert.False(t, IsTransient(&StatusError{Code: 400}))
	assert.False(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.False(t, IsTransient(nil))
}

func TestCommunityHelpers(t *testing.T) {
	c := &Community{ID: "g1", Roles: []Role{
		{ID: "g1", Position: 0, Permissions: PermSendMessages},
		{ID: "mod", Position: 3, Permissions: PermKickMembers},
		{ID: "admin", Position: 7, Permissions: PermAdministrator},
	}}

	assert.Equal(t, 7, c.HighestPosition([]string{"mod", "admin"}))
	assert.Equal(t, -1, c.HighestPosition([]string{"missing"}))
	assert.Equal(t, PermSendMessages|PermKickMembers, c.Permissions([]string{"mod"}))
	assert.True(t, IsElevated(PermKickMembers))
	assert.False(t, IsElevated(PermSendMessages))
}

func TestChannelOverwrite(t *testing.T) {
	ch := &Channel{Overwrites: map[string]models.Overlay{"g1": {Deny: PermSendMessages}}}

	ov := ch.Overwrite("g1")
	assert.True(t, ov.Existed)
	assert.Equal(t, PermSendMessages, ov.Deny)
	assert.Equal(t, models.Overlay{}, ch.Overwrite("other"))
}

func TestAuditActionFor(t *testing.T) {
	a, ok := AuditActionFor(models.EventTypeChannelDelete)
	assert.True(t, ok)
	assert.Equal(t, AuditChannelDelete, a)

	_, ok = AuditActionFor(models.EventTypeMessageCreate)
	assert.False(t, ok)
}
