package forensics

import (
	"time"

	"go-threatguard/internal/platform"
)

// AuditMatcher decides whether the newest audit entry plausibly describes
// an event that just happened. Targets are not compared: during a burst the
// newest entry usually belongs to a later event by the same actor.
type AuditMatcher struct {
	maxAge time.Duration
}

func NewAuditMatcher(maxAge time.Duration) *AuditMatcher {
	return &AuditMatcher{maxAge: maxAge}
}

func (am *AuditMatcher) Match(entry *platform.AuditEntry, now time.Time) bool {
	if entry == nil || entry.ActorID == "" {
		return false
	}
	if am.maxAge > 0 && !entry.CreatedAt.IsZero() && now.Sub(entry.CreatedAt) > am.maxAge {
		return false
	}
	return true
}
