// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"vocalbridge/platform/orchestrator/cost"
	"vocalbridge/platform/orchestrator/idempotency"
	"vocalbridge/platform/orchestrator/message"
	"vocalbridge/platform/orchestrator/reliability"
)

// Provider types understood by the adapter factory.
const (
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
)

// Idempotency store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ProviderConfig configures one named vendor.
type ProviderConfig struct {
	Type    string `yaml:"type"`
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Region  string `yaml:"region"`
}

// IdempotencyConfig configures response replay.
type IdempotencyConfig struct {
	Store         string
	TTL           time.Duration
	SweepSchedule string
}

// Config is built once at start-up and passed to constructors.
type Config struct {
	Port        int
	DatabaseURL string
	RedisURL    string

	Reliability reliability.Config
	Idempotency IdempotencyConfig

	Providers map[string]ProviderConfig
	Pricing   map[string]cost.ProviderPricing
	Agents    []message.Agent
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:        8080,
		Reliability: reliability.DefaultConfig(),
		Idempotency: IdempotencyConfig{
			Store:         StoreMemory,
			TTL:           idempotency.DefaultTTL,
			SweepSchedule: idempotency.DefaultSweepSchedule,
		},
		Providers: map[string]ProviderConfig{
			"vendorA": {Type: ProviderOpenAI, Enabled: true, Model: "gpt-4o-mini"},
			"vendorB": {Type: ProviderGemini, Enabled: true, Model: "gemini-2.5-flash"},
			"vendorC": {Type: ProviderBedrock, Enabled: false, Region: "us-east-1"},
		},
		Pricing: cost.DefaultPricing(),
	}
}

// Load builds the configuration. envPath and configPath may be empty; a
// missing .env file is not an error but a missing YAML file is.
func Load(configPath, envPath string) (*Config, error) {
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
			}
		}
	}

	cfg := Default()
	if configPath != "" {
		if err := cfg.applyFile(configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)

	var err error
	if c.Port, err = getEnvInt("PORT", c.Port); err != nil {
		return err
	}
	if c.Reliability.MaxRetries, err = getEnvInt("VENDOR_MAX_RETRIES", c.Reliability.MaxRetries); err != nil {
		return err
	}
	if c.Reliability.Timeout, err = getEnvSeconds("VENDOR_TIMEOUT_SECONDS", c.Reliability.Timeout); err != nil {
		return err
	}
	if c.Reliability.MinWait, err = getEnvSeconds("VENDOR_RETRY_MIN_WAIT", c.Reliability.MinWait); err != nil {
		return err
	}
	if c.Reliability.MaxWait, err = getEnvSeconds("VENDOR_RETRY_MAX_WAIT", c.Reliability.MaxWait); err != nil {
		return err
	}

	hours, err := getEnvInt("IDEMPOTENCY_TTL_HOURS", 0)
	if err != nil {
		return err
	}
	if hours != 0 {
		c.Idempotency.TTL = time.Duration(hours) * time.Hour
	}
	c.Idempotency.Store = getEnv("IDEMPOTENCY_STORE", c.Idempotency.Store)
	c.Idempotency.SweepSchedule = getEnv("IDEMPOTENCY_SWEEP_SCHEDULE", c.Idempotency.SweepSchedule)

	c.overrideProviders(ProviderOpenAI, func(p *ProviderConfig) {
		p.APIKey = getEnv("OPENAI_API_KEY", p.APIKey)
	})
	c.overrideProviders(ProviderGemini, func(p *ProviderConfig) {
		p.APIKey = getEnv("GOOGLE_API_KEY", p.APIKey)
	})
	c.overrideProviders(ProviderBedrock, func(p *ProviderConfig) {
		p.Region = getEnv("BEDROCK_REGION", p.Region)
		p.Model = getEnv("BEDROCK_MODEL", p.Model)
	})
	return nil
}

func (c *Config) overrideProviders(providerType string, apply func(*ProviderConfig)) {
	for name, p := range c.Providers {
		if p.Type != providerType {
			continue
		}
		apply(&p)
		c.Providers[name] = p
	}
}

// EnabledProviders returns the names of enabled providers, sorted.
func (c *Config) EnabledProviders() []string {
	var names []string
	for name, p := range c.Providers {
		if p.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Agent returns the configured agent with the given id.
func (c *Config) Agent(id string) (message.Agent, bool) {
	for _, a := range c.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return message.Agent{}, false
}

// PricingTable builds the cost table from the configured prices.
func (c *Config) PricingTable() (*cost.PricingTable, error) {
	return cost.NewPricingTable(c.Pricing)
}

// Validate rejects configurations the orchestrator cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if err := c.Reliability.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Idempotency.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres idempotency store needs DATABASE_URL", ErrInvalidConfig)
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis idempotency store needs REDIS_URL", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown idempotency store %q", ErrInvalidConfig, c.Idempotency.Store)
	}
	if c.Idempotency.TTL <= 0 {
		return fmt.Errorf("%w: idempotency ttl must be positive", ErrInvalidConfig)
	}
	if _, err := cron.ParseStandard(c.Idempotency.SweepSchedule); err != nil {
		return fmt.Errorf("%w: sweep schedule %q: %v", ErrInvalidConfig, c.Idempotency.SweepSchedule, err)
	}

	if _, err := c.PricingTable(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for name, p := range c.Providers {
		if !p.Enabled {
			continue
		}
		switch p.Type {
		case ProviderOpenAI, ProviderGemini, ProviderBedrock:
		default:
			return fmt.Errorf("%w: provider %s has unknown type %q", ErrInvalidConfig, name, p.Type)
		}
		if _, ok := c.Pricing[name]; !ok {
			return fmt.Errorf("%w: provider %s is enabled but has no price", ErrInvalidConfig, name)
		}
	}

	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("%w: agent without id", ErrInvalidConfig)
		}
		if seen[a.ID] {
			return fmt.Errorf("%w: duplicate agent %s", ErrInvalidConfig, a.ID)
		}
		seen[a.ID] = true
		if a.PrimaryProvider == "" {
			return fmt.Errorf("%w: agent %s has no primary provider", ErrInvalidConfig, a.ID)
		}
		for _, provider := range []string{a.PrimaryProvider, a.FallbackProvider} {
			if provider == "" {
				continue
			}
			if p, ok := c.Providers[provider]; !ok || !p.Enabled {
				return fmt.Errorf("%w: agent %s uses provider %q which is not enabled", ErrInvalidConfig, a.ID, provider)
			}
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, value)
	}
	return n, nil
}

func getEnvSeconds(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number of seconds", ErrInvalidConfig, key, value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
