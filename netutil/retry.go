package netutil

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultAttempts = 3
	DefaultBackoff  = 500 * time.Millisecond
)

// Retry runs f up to attempts times with exponential backoff. Only errors
// wrapping ErrTransient are retried; anything else is returned at once.
func Retry(ctx context.Context, attempts int, base time.Duration, f func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	if base <= 0 {
		base = time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := f(ctx)
		if IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
