// Package reliability provides bounded retry with exponential backoff.
// Only connection establishment is retried; protocol operations are never
// retried automatically.
package reliability

import (
	"context"
	"time"
)

// Config holds the parameters of one retry loop.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DialConfig returns the retry parameters used when dialing the backend.
func DialConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retry runs fn up to MaxAttempts times, sleeping with exponential backoff
// between attempts. The last error is returned when every attempt fails;
// context cancellation cuts the loop short.
func Retry(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
