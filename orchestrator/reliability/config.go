// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package reliability

import (
	"fmt"
	"time"
)

// Config is the immutable retry and timeout policy of a Caller.
type Config struct {
	// MaxRetries bounds the attempts made against one provider.
	MaxRetries int

	// Timeout bounds each individual attempt.
	Timeout time.Duration

	// Multiplier is the base of the exponential backoff.
	Multiplier time.Duration

	// MinWait and MaxWait clamp the computed backoff.
	MinWait time.Duration
	MaxWait time.Duration
}

// DefaultConfig returns 3 attempts per provider, a 10s attempt timeout and
// backoff of 1s, 2s, 4s ... capped at 10s.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		Timeout:    10 * time.Second,
		Multiplier: time.Second,
		MinWait:    time.Second,
		MaxWait:    10 * time.Second,
	}
}

// Validate rejects policies that cannot make progress.
func (c Config) Validate() error {
	switch {
	case c.MaxRetries < 1:
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	case c.Timeout <= 0:
		return fmt.Errorf("attempt timeout must be positive, got %s", c.Timeout)
	case c.Multiplier < 0 || c.MinWait < 0 || c.MaxWait < 0:
		return fmt.Errorf("backoff durations must not be negative")
	case c.MinWait > c.MaxWait:
		return fmt.Errorf("min wait %s exceeds max wait %s", c.MinWait, c.MaxWait)
	}
	return nil
}

// Backoff returns the wait after the given 1-based attempt fails:
// min(MaxWait, Multiplier * 2^(attempt-1)), floored at MinWait.
func (c Config) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	wait := c.Multiplier
	for i := 1; i < attempt; i++ {
		if wait >= c.MaxWait {
			break
		}
		wait *= 2
	}
	if wait > c.MaxWait {
		wait = c.MaxWait
	}
	if wait < c.MinWait {
		wait = c.MinWait
	}
	return wait
}
