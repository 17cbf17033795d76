package platform

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"go-threatguard/internal/logging"
	"go-threatguard/internal/metrics"
)

// Guard is the single retry and suppress policy for platform calls. Calls
// wait on a shared rate limiter, transient failures are retried with linear
// backoff, and Try turns any remaining failure into a log line.
type Guard struct {
	limiter  *rate.Limiter
	attempts int
	backoff  time.Duration
}

func NewGuard(rps float64, burst, attempts int, backoff time.Duration) *Guard {
	if attempts < 1 {
		attempts = 1
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Guard{
		limiter:  rate.NewLimiter(limit, burst),
		attempts: attempts,
		backoff:  backoff,
	}
}

// Do runs fn until it succeeds, fails permanently or runs out of attempts.
// op labels the call metrics and must be a fixed operation name, never an id.
func (g *Guard) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if werr := g.limiter.Wait(ctx); werr != nil {
			err = werr
			break
		}

		err = fn(ctx)
		if err == nil {
			metrics.PlatformCalls.WithLabelValues(op, "ok").Inc()
			return nil
		}
		if !IsTransient(err) || attempt == g.attempts {
			break
		}

		metrics.PlatformCalls.WithLabelValues(op, "retry").Inc()
		wait := retryAfter(err)
		if wait <= 0 {
			wait = g.backoff * time.Duration(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	metrics.PlatformCalls.WithLabelValues(op, "failed").Inc()
	return err
}

// Try is Do with the error logged and swallowed. target only shows up in the
// log line.
func (g *Guard) Try(ctx context.Context, op, target string, fn func(ctx context.Context) error) bool {
	if err := g.Do(ctx, op, fn); err != nil {
		if IsGone(err) {
			logging.Debug("%s %s skipped, target gone: %v", op, target, err)
		} else {
			logging.Warn("%s %s failed: %v", op, target, err)
		}
		return false
	}
	return true
}
