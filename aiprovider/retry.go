package aiprovider

import (
	"context"
	"time"

	"go.uber.org/zap"

	"planforge/logging"
)

// RetryPolicy bounds retry behavior for retryable provider errors.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 are treated as 1 (no retries).
	MaxAttempts int

	// BaseDelay is the wait before the first retry. Each subsequent retry
	// doubles the delay (exponential backoff).
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured:
// 3 attempts, 2s base delay, 30s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Do runs op, retrying with exponential backoff while the returned error is
// classified retryable (NETWORK_ERROR, RATE_LIMIT). Fatal categories and
// unclassified errors abort immediately. Context cancellation aborts the
// wait between attempts.
//
// The final error returned is from the last attempt, classified.
func Do(ctx context.Context, policy RetryPolicy, logger *logging.Logger, providerName string, op func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := policy.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		classified := Classify(providerName, err)
		lastErr = classified

		if !classified.Retryable() {
			return classified
		}
		if attempt == attempts {
			break
		}

		if logger != nil {
			logger.Warn("retryable provider error, backing off",
				zap.String("provider", providerName),
				zap.String("category", string(classified.Category)),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Duration("delay", delay))
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Classify(providerName, ctx.Err())
		case <-timer.C:
		}

		delay *= 2
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return lastErr
}
