package providers

import (
	"context"
	"time"
)

// RetryConfig bounds the retry loop around a provider call
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
}

// Do invokes fn and retries it up to MaxRetries additional times when the
// returned error is a retryable provider error, backing off linearly between
// attempts. Validation-class provider errors (4xx, auth) are never retried.
// A cancelled context stops the loop immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return NewProviderError("", CodeTimeout, "cancelled while waiting to retry", 0, false, ctx.Err())
			case <-time.After(cfg.Delay * time.Duration(attempt)):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
