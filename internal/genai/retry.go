package genai

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// CalculateBackoff returns the full-jitter delay before retry number
// attempt (1-based): random(0, min(max, initial*2^(attempt-1))).
func CalculateBackoff(attempt int, initial, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initial <= 0 {
		return 0
	}

	delay := initial
	for i := 1; i < attempt && delay < maxDelay; i++ {
		delay *= 2
	}
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(delay)))
	if err != nil {
		return delay / 2
	}
	return time.Duration(n.Int64())
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithRetry calls fn until it succeeds, returns a non-retryable error, or
// cfg.MaxAttempts calls have been made. onRetry, when non-nil, runs before
// each backoff with the upcoming attempt number.
func WithRetry(ctx context.Context, cfg RetryConfig, onRetry func(attempt int, err error), fn func(ctx context.Context) error) error {
	attempts := max(cfg.MaxAttempts, 1)

	var lastErr error
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == attempts-1 {
			break
		}
		if onRetry != nil {
			onRetry(attempt+1, err)
		}
		if err := Sleep(ctx, CalculateBackoff(attempt+1, cfg.InitialDelay, cfg.MaxDelay)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// RemainingBudget returns the time left before ctx's deadline, or 0 when
// ctx has none.
func RemainingBudget(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(deadline)
}

// HasSufficientBudget reports whether at least required remains before
// ctx's deadline. A context without a deadline always has budget.
func HasSufficientBudget(ctx context.Context, required time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) >= required
}
