// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vocalbridge/platform/common/usage"
	"vocalbridge/platform/llm/bedrock"
	"vocalbridge/platform/llm/gemini"
	"vocalbridge/platform/llm/openai"
	"vocalbridge/platform/orchestrator/config"
	"vocalbridge/platform/orchestrator/cost"
	"vocalbridge/platform/orchestrator/idempotency"
	"vocalbridge/platform/orchestrator/ledger"
	"vocalbridge/platform/orchestrator/llm"
	"vocalbridge/platform/orchestrator/message"
	"vocalbridge/platform/orchestrator/reliability"
	"vocalbridge/platform/shared/database"
	"vocalbridge/platform/shared/logger"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Pricing  *cost.PricingTable
	Registry *llm.Registry
	Ledger   *ledger.Ledger
	Caller   *reliability.Caller
	Meter    *usage.Meter
	Cache    *idempotency.Cache
	Sweeper  *idempotency.Sweeper
	Handler  *message.Handler

	log     *logger.Logger
	closers []func() error
}

type options struct {
	db       *sql.DB
	adapters []llm.Adapter
	secrets  config.SecretResolver
	store    idempotency.Store
	log      *logger.Logger
}

// Option customises New.
type Option func(*options)

// WithDB uses an already open database instead of DATABASE_URL.
func WithDB(db *sql.DB) Option {
	return func(o *options) { o.db = db }
}

// WithAdapters registers the given adapters instead of building them from
// the provider configuration.
func WithAdapters(adapters ...llm.Adapter) Option {
	return func(o *options) { o.adapters = adapters }
}

// WithSecretResolver resolves secret-reference API keys.
func WithSecretResolver(r config.SecretResolver) Option {
	return func(o *options) { o.secrets = r }
}

// WithIdempotencyStore overrides the configured idempotency backend.
func WithIdempotencyStore(s idempotency.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLogger sets the application logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// New wires every component. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.New("orchestrator")
	}

	app := &App{Config: cfg, log: o.log}
	if err := app.build(ctx, o); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context, o options) error {
	cfg := a.Config

	pricing, err := cfg.PricingTable()
	if err != nil {
		return err
	}
	a.Pricing = pricing

	a.DB = o.db
	if a.DB == nil && cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL, database.Options{Logger: a.log.Named("database")})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		a.DB = db
	}

	var attemptRepo ledger.Repository
	var usageRepo usage.Repository
	if a.DB != nil {
		attemptRepo = ledger.NewPostgresRepository(a.DB)
		usageRepo = usage.NewPostgresRepository(a.DB)
	} else {
		a.log.Warn("", "", "DATABASE_URL not set, ledger and usage are kept in memory", nil)
		attemptRepo = ledger.NewMemoryRepository()
		usageRepo = usage.NewMemoryRepository()
	}
	a.Ledger = ledger.New(attemptRepo, ledger.WithLogger(a.log.Named("attempt-ledger")))
	a.Meter = usage.NewMeter(pricing, usageRepo, usage.WithLogger(a.log.Named("usage-meter")))

	store := o.store
	if store == nil {
		if store, err = a.openStore(ctx); err != nil {
			return err
		}
	}
	a.Cache = idempotency.NewCache(store,
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(a.log.Named("idempotency")),
		idempotency.WithValidator(message.ValidateDocument),
	)
	if a.Sweeper, err = idempotency.NewSweeper(a.Cache, cfg.Idempotency.SweepSchedule, a.log.Named("idempotency-sweeper")); err != nil {
		return err
	}

	adapters := o.adapters
	if adapters == nil {
		if adapters, err = a.buildAdapters(ctx, o.secrets); err != nil {
			return err
		}
	}
	a.Registry = llm.NewRegistry(adapters...)

	if a.Caller, err = reliability.NewCaller(a.Registry, a.Ledger, cfg.Reliability,
		reliability.WithLogger(a.log.Named("resilient-caller"))); err != nil {
		return err
	}

	a.Handler = message.NewHandler(a.Caller, a.Meter, a.Cache, pricing,
		message.WithLogger(a.log.Named("message-handler")))
	return nil
}

func (a *App) openStore(ctx context.Context) (idempotency.Store, error) {
	switch a.Config.Idempotency.Store {
	case config.StorePostgres:
		if a.DB == nil {
			return nil, errors.New("postgres idempotency store needs a database")
		}
		return idempotency.NewPostgresStore(a.DB), nil
	case config.StoreRedis:
		store, err := idempotency.NewRedisStoreFromURL(ctx, a.Config.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return idempotency.NewMemoryStore(), nil
	}
}

// buildAdapters creates one adapter per enabled provider. Providers whose
// API key is missing are skipped with a warning.
func (a *App) buildAdapters(ctx context.Context, secrets config.SecretResolver) ([]llm.Adapter, error) {
	if secrets == nil && a.needsSecrets() {
		sm, err := config.NewAWSSecretsManager(ctx, config.AWSSecretsManagerOptions{
			Logger: a.log.Named("secrets-manager"),
		})
		if err != nil {
			return nil, err
		}
		secrets = sm
	}
	if err := a.Config.ResolveSecrets(ctx, secrets); err != nil {
		return nil, err
	}

	var adapters []llm.Adapter
	for _, name := range a.Config.EnabledProviders() {
		p := a.Config.Providers[name]

		var adapter llm.Adapter
		var err error
		switch p.Type {
		case config.ProviderOpenAI:
			if p.APIKey == "" {
				a.skipProvider(name, "OPENAI_API_KEY not set")
				continue
			}
			adapter, err = openai.New(openai.Config{Name: name, APIKey: p.APIKey, Model: p.Model, BaseURL: p.BaseURL})
		case config.ProviderGemini:
			if p.APIKey == "" {
				a.skipProvider(name, "GOOGLE_API_KEY not set")
				continue
			}
			adapter, err = gemini.New(ctx, gemini.Config{Name: name, APIKey: p.APIKey, Model: p.Model, BaseURL: p.BaseURL})
		case config.ProviderBedrock:
			adapter, err = bedrock.New(ctx, bedrock.Config{Name: name, Region: p.Region, Model: p.Model})
		default:
			return nil, fmt.Errorf("provider %s: unknown type %q", name, p.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

func (a *App) needsSecrets() bool {
	for _, p := range a.Config.Providers {
		if p.Enabled && config.IsSecretReference(p.APIKey) {
			return true
		}
	}
	return false
}

func (a *App) skipProvider(name, reason string) {
	a.log.Warn("", "", "provider disabled", map[string]interface{}{
		"provider": name,
		"reason":   reason,
	})
}

// Close releases connections opened by New, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
