package engine

import (
	"context"
	"time"
)

const (
	backoffBase = time.Second
	backoffMax  = 30 * time.Second
	maxAttempts = 3
)

// backoffDelay returns the pause before retry attempt n (0-based),
// doubling from the base up to the cap.
func backoffDelay(attempt int) time.Duration {
	delay := backoffBase << uint(attempt)
	if delay > backoffMax {
		return backoffMax
	}
	return delay
}

// withRetry runs fn up to maxAttempts times, sleeping between failures.
// It returns the last error if every attempt fails, or the context error if
// cancelled mid-wait.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(attempt)):
		}
	}
	return err
}
