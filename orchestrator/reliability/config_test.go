// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package reliability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{50, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoffFloorsAtMinWait(t *testing.T) {
	cfg := Config{Multiplier: 100 * time.Millisecond, MinWait: time.Second, MaxWait: 3 * time.Second}

	assert.Equal(t, time.Second, cfg.Backoff(1))
	assert.Equal(t, time.Second, cfg.Backoff(4))
	assert.Equal(t, 1600*time.Millisecond, cfg.Backoff(5))
	assert.Equal(t, 3*time.Second, cfg.Backoff(7))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"negative multiplier", func(c *Config) { c.Multiplier = -time.Second }},
		{"min above max", func(c *Config) { c.MinWait = 20 * time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
