package util

import (
	"context"
	"time"
)

// Retry runs fn up to maxAttempts times, doubling the delay between attempts
// starting from baseDelay. The first nil result wins; otherwise the last
// error is returned. Cancelling ctx aborts the wait between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := baseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return lastErr
}
