// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"vocalbridge/platform/orchestrator/cost"
	"vocalbridge/platform/orchestrator/message"
)

// fileConfig is the YAML document shape. Zero values leave defaults alone.
type fileConfig struct {
	Port        int    `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`

	Vendor struct {
		TimeoutSeconds    float64 `yaml:"timeout_seconds"`
		MaxRetries        int     `yaml:"max_retries"`
		MultiplierSeconds float64 `yaml:"backoff_multiplier_seconds"`
		MinWaitSeconds    float64 `yaml:"retry_min_wait_seconds"`
		MaxWaitSeconds    float64 `yaml:"retry_max_wait_seconds"`
	} `yaml:"vendor"`

	Idempotency struct {
		Store         string `yaml:"store"`
		TTLHours      int    `yaml:"ttl_hours"`
		SweepSchedule string `yaml:"sweep_schedule"`
	} `yaml:"idempotency"`

	Providers map[string]ProviderConfig `yaml:"providers"`

	// Prices are strings so they are never rounded through a float.
	Pricing map[string]struct {
		InputPer1K  string `yaml:"input_per_1k"`
		OutputPer1K string `yaml:"output_per_1k"`
	} `yaml:"pricing"`

	Agents []message.Agent `yaml:"agents"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		c.Port = fc.Port
	}
	if fc.DatabaseURL != "" {
		c.DatabaseURL = fc.DatabaseURL
	}
	if fc.RedisURL != "" {
		c.RedisURL = fc.RedisURL
	}

	if fc.Vendor.MaxRetries != 0 {
		c.Reliability.MaxRetries = fc.Vendor.MaxRetries
	}
	setSeconds(&c.Reliability.Timeout, fc.Vendor.TimeoutSeconds)
	setSeconds(&c.Reliability.Multiplier, fc.Vendor.MultiplierSeconds)
	setSeconds(&c.Reliability.MinWait, fc.Vendor.MinWaitSeconds)
	setSeconds(&c.Reliability.MaxWait, fc.Vendor.MaxWaitSeconds)

	if fc.Idempotency.Store != "" {
		c.Idempotency.Store = fc.Idempotency.Store
	}
	if fc.Idempotency.TTLHours != 0 {
		c.Idempotency.TTL = time.Duration(fc.Idempotency.TTLHours) * time.Hour
	}
	if fc.Idempotency.SweepSchedule != "" {
		c.Idempotency.SweepSchedule = fc.Idempotency.SweepSchedule
	}

	// A providers section replaces the defaults entirely.
	if len(fc.Providers) > 0 {
		c.Providers = make(map[string]ProviderConfig, len(fc.Providers))
		for name, p := range fc.Providers {
			c.Providers[name] = p
		}
	}

	for name, p := range fc.Pricing {
		in, err := decimal.NewFromString(p.InputPer1K)
		if err != nil {
			return fmt.Errorf("pricing %s input_per_1k %q: %w", name, p.InputPer1K, err)
		}
		out, err := decimal.NewFromString(p.OutputPer1K)
		if err != nil {
			return fmt.Errorf("pricing %s output_per_1k %q: %w", name, p.OutputPer1K, err)
		}
		c.Pricing[name] = cost.ProviderPricing{InputPer1K: in, OutputPer1K: out}
	}

	c.Agents = append(c.Agents, fc.Agents...)
	return nil
}

func setSeconds(dst *time.Duration, secs float64) {
	if secs != 0 {
		*dst = time.Duration(secs * float64(time.Second))
	}
}

var envVarRegex = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*(:-[^}]*)?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default}. Unset variables without a
// default expand to the empty string.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		name := match[2 : len(match)-1]
		defaultVal := ""
		if idx := strings.Index(name, ":-"); idx != -1 {
			defaultVal = name[idx+2:]
			name = name[:idx]
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultVal
	})
}
