// Package retry provides the single backoff-retrying call wrapper used
// for every operation against the backing store. Call sites never
// reimplement backoff.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Default configuration values.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 15 * time.Second
	DefaultMultiplier  = 2.0
	DefaultJitter      = 250 * time.Millisecond
)

// Config controls the retry schedule. The zero value is usable: every
// field falls back to its default, and a nil Retryable retries nothing.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      time.Duration

	// Retryable classifies errors worth retrying. Anything it rejects
	// propagates to the caller unchanged on the first attempt.
	Retryable func(error) bool
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.Multiplier <= 1 {
		c.Multiplier = DefaultMultiplier
	}
	return c
}

// Do invokes fn up to cfg.MaxAttempts times, sleeping with exponential
// backoff between attempts. Only errors accepted by cfg.Retryable are
// retried; any other error fails fast. On exhaustion the last error is
// wrapped with the attempt count and desc.
func Do(ctx context.Context, cfg Config, desc string, fn func(context.Context) error) error {
	cfg = cfg.withDefaults()

	delay := cfg.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			sleep := delay
			if cfg.Jitter > 0 {
				sleep += time.Duration(rand.Int63n(int64(cfg.Jitter)))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if cfg.Retryable == nil || !cfg.Retryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%s: %d attempts exhausted: %w", desc, cfg.MaxAttempts, lastErr)
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, cfg Config, desc string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, cfg, desc, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
