package lichess

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// StatusError is returned for any non-200 explorer response.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("explorer status %d", e.StatusCode)
	}
	return fmt.Sprintf("explorer status %d: %s", e.StatusCode, e.Body)
}

// IsTransient reports whether err is worth retrying: network failures,
// timeouts, 429 and 5xx. Cancellation of the caller's context is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.StatusCode == http.StatusTooManyRequests || serr.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}
