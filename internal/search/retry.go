package search

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig bounds the retry helper.
type RetryConfig struct {
	MaxAttempts  int           // total attempts including the first
	InitialDelay time.Duration // base delay, doubled per attempt
	MaxDelay     time.Duration // delay cap
}

// DefaultRetryConfig matches the collaborator contract: capped exponential
// backoff with jitter over a small fixed attempt budget.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
	}
}

// WithRetry runs fn until it succeeds, fails non-retryably, or exhausts the
// attempt budget. Delays grow as InitialDelay x 2^attempt with up to 25%
// jitter, capped at MaxDelay. Non-retryable errors propagate after the
// first failing attempt without consuming retry budget.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.25
	b.MaxInterval = cfg.MaxDelay
	b.MaxElapsedTime = 0 // attempts bound the retry budget, not wall time

	wrapped := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(cfg.MaxAttempts-1))
	return backoff.Retry(wrapped, policy)
}
