package scraper

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// maxRetryDelay caps a single backoff step.
const maxRetryDelay = 30 * time.Second

// RetryWithBackoff runs fn until it succeeds, returns a permanent error,
// or maxRetries retries have been spent (0 = single attempt).
//
// Backoff: delay = initialDelay * 2^attempt ± 25% jitter, capped at 30s.
//
//	attempt 0: immediate
//	attempt 1: ~1s  (0.75s - 1.25s)
//	attempt 2: ~2s  (1.5s - 2.5s)
//	attempt 3: ~4s  (3s - 5s)
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var permErr *permanentError
		if errors.As(err, &permErr) {
			return permErr.Unwrap()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == maxRetries {
			break
		}

		if err := Sleep(ctx, backoffDelay(initialDelay, attempt)); err != nil {
			return err
		}
	}

	return lastErr
}

// backoffDelay returns the jittered delay before retry attempt+1.
func backoffDelay(initial time.Duration, attempt int) time.Duration {
	delay := initial << attempt
	if delay <= 0 || delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	half := int64(delay) / 2
	if half == 0 {
		half = 1
	}
	jitter, err := rand.Int(rand.Reader, big.NewInt(half))
	if err != nil {
		jitter = big.NewInt(0)
	}
	return delay - delay/4 + time.Duration(jitter.Int64())
}

// Sleep waits for the specified duration, respecting context cancellation
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
