package dispatcher

import (
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

type RateLimitBucket struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RateLimitMonitor tracks the platform's per-route buckets from response
// headers so requests known to be throttled are not sent.
type RateLimitMonitor struct {
	mu      sync.RWMutex
	buckets map[string]*RateLimitBucket
	now     func() time.Time
}

func NewRateLimitMonitor() *RateLimitMonitor {
	return &RateLimitMonitor{
		buckets: make(map[string]*RateLimitBucket),
		now:     time.Now,
	}
}

// Wait returns how long the route must wait, zero when it may proceed.
func (rlm *RateLimitMonitor) Wait(route, guildID string) time.Duration {
	rlm.mu.RLock()
	bucket, exists := rlm.buckets[rlm.getKey(route, guildID)]
	rlm.mu.RUnlock()

	if !exists || bucket.Remaining > 0 {
		return 0
	}
	wait := bucket.ResetAt.Sub(rlm.now())
	if wait < 0 {
		return 0
	}
	return wait
}

func (rlm *RateLimitMonitor) UpdateFromFastHTTPResponse(resp *fasthttp.Response, route, guildID string) {
	remaining := string(resp.Header.Peek("X-RateLimit-Remaining"))
	if remaining == "" {
		return
	}

	bucket := &RateLimitBucket{}
	bucket.Remaining, _ = strconv.Atoi(remaining)
	if limit := string(resp.Header.Peek("X-RateLimit-Limit")); limit != "" {
		bucket.Limit, _ = strconv.Atoi(limit)
	}
	if after := string(resp.Header.Peek("X-RateLimit-Reset-After")); after != "" {
		secs, _ := strconv.ParseFloat(after, 64)
		bucket.ResetAt = rlm.now().Add(time.Duration(secs * float64(time.Second)))
	} else if reset := string(resp.Header.Peek("X-RateLimit-Reset")); reset != "" {
		secs, _ := strconv.ParseFloat(reset, 64)
		bucket.ResetAt = time.Unix(0, int64(secs*float64(time.Second)))
	}

	rlm.mu.Lock()
	rlm.buckets[rlm.getKey(route, guildID)] = bucket
	rlm.mu.Unlock()
}

func (rlm *RateLimitMonitor) getKey(route, guildID string) string {
	return route + ":" + guildID
}

func (rlm *RateLimitMonitor) GetBucket(route, guildID string) *RateLimitBucket {
	rlm.mu.RLock()
	defer rlm.mu.RUnlock()
	return rlm.buckets[rlm.getKey(route, guildID)]
}
