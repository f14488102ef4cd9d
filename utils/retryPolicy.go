package utils

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds a retry loop. The schema-drift writer and the upload
// reconciliation poller both run through Do.
type RetryPolicy struct {
	MaxAttempts int
	// IsRetryable decides whether the error from an attempt allows another one.
	// A nil IsRetryable retries every error.
	IsRetryable func(err error) bool
	// Backoff returns the delay before attempt+1 (attempt is zero-based).
	// A nil Backoff retries immediately.
	Backoff func(attempt int) time.Duration
}

// ErrRetryExhausted wraps the last error once MaxAttempts is reached.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// LinearBackoff grows the delay by step per attempt: step, 2*step, 3*step...
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return step * time.Duration(attempt+1)
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. fn receives the zero-based attempt number.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if p.IsRetryable != nil && !p.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts-1 {
			break
		}
		if p.Backoff != nil {
			if err := sleepContext(ctx, p.Backoff(attempt)); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
	return errors.Join(ErrRetryExhausted, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
