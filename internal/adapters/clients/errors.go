// Package clients provides the resilient HTTP client used by remote quote sources.
package clients

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Transport-level failures. The acl package translates them into domain errors.
var (
	ErrCircuitOpen      = errors.New("circuit breaker open")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrMalformedBody    = errors.New("malformed response body")
)

// maxErrorBody caps how much of a failed response is kept for error translation.
const maxErrorBody = 4 << 10

// StatusError is a response outside the 2xx range.
type StatusError struct {
	Code int
	// Body is the start of the response body, at most maxErrorBody bytes.
	Body []byte
	// RetryAfter is the server's requested delay; zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// tripsBreaker reports whether err says the remote is unhealthy. Rejected
// input (4xx other than 429) leaves the breaker alone.
func tripsBreaker(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}

	return true
}
