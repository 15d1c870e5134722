package narthex

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// MaxRetries is the number of attempts made for one upstream call.
const MaxRetries = 3

const maxBackoff = 8 * time.Second

// RetryableError is a transient upstream failure: a 429 or a 5xx.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // From the Retry-After header; zero when absent
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("narthex status %d: %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns the wait before retrying after attempt n (0-indexed):
// 500ms doubling per attempt plus up to 50% jitter, capped at 8s.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
	if base > maxBackoff {
		base = maxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// retryDelay prefers the server's Retry-After hint, capped like Backoff.
func (c *Client) retryDelay(err error, attempt int) time.Duration {
	var retryErr *RetryableError
	if errors.As(err, &retryErr) && retryErr.RetryAfter > 0 {
		return min(retryErr.RetryAfter, maxBackoff)
	}
	return c.backoff(attempt)
}

// parseRetryAfter reads a Retry-After header given in seconds. HTTP dates
// are ignored.
func parseRetryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
