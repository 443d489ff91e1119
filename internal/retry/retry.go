// Package retry provides exponential backoff retry logic for store API calls.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	serrors "github.com/p-blackswan/progress-sync/internal/errors"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultConfig returns sensible retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// Do executes fn with exponential backoff. Only retryable errors retry;
// when a throttled store answered with a Retry-After hint the wait is
// raised to honor it.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !serrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay(cfg, attempt, lastErr)):
		}
	}
	return lastErr
}

// delay picks the wait before the next attempt: jittered exponential
// backoff, raised to the server's Retry-After hint when present, capped at
// MaxDelay. Jitter never shortens a hint below what the server asked for.
func delay(cfg Config, attempt int, err error) time.Duration {
	d := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt)))
	if cfg.Jitter {
		d = time.Duration(float64(d) * (0.5 + rand.Float64()*0.5))
	}
	if hint, ok := serrors.RetryAfterHint(err); ok && hint > d {
		d = hint
	}
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return d
}
