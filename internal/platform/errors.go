package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// StatusError is a failed platform REST call.
type StatusError struct {
	Op         string
	Code       int
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Code)
}

// IsTransient reports whether retrying the call could succeed.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// IsGone reports a 404, usually an actor or channel that no longer exists.
func IsGone(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == 404
}

func retryAfter(err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}
