package forensics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-threatguard/internal/platform"
)

func TestAuditMatcher(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	am := NewAuditMatcher(10 * time.Second)

	assert.True(t, am.Match(&platform.AuditEntry{ActorID: "u1", CreatedAt: now.Add(-10 * time.Second)}, now))
	assert.False(t, am.Match(&platform.AuditEntry{ActorID: "u1", CreatedAt: now.Add(-11 * time.Second)}, now))
	assert.False(t, am.Match(&platform.AuditEntry{CreatedAt: now}, now))
	assert.False(t, am.Match(nil, now))

	// Targets are never compared.
	assert.True(t, am.Match(&platform.AuditEntry{ActorID: "u1", TargetID: "anything", CreatedAt: now}, now))
	assert.True(t, NewAuditMatcher(0).Match(&platform.AuditEntry{ActorID: "u1", CreatedAt: now.Add(-time.Hour)}, now))
}
