package search

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for search operations. Both are validation failures and
// never retried.
var (
	ErrMissingAPIKey = errors.New("search API key is empty")
	ErrEmptyQuery    = errors.New("search query is empty")
)

// HTTPError is a transport-level failure carrying the response status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("search API returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("search API returned %d", e.StatusCode)
}

// Retryable reports whether the failure is transient: server errors and
// rate limiting retry, other client errors propagate immediately.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// retryable classifies an error for the retry helper: a typed retryability
// flag wins, message heuristics are the fallback for wrapped transport
// errors that carry no type.
func retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"timeout", "timed out", "connection refused", "connection reset", "temporarily", "eof"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
