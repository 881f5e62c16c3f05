// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package database opens the PostgreSQL connection shared by the ledger,
// usage and idempotency repositories and applies their schema.
package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"vocalbridge/platform/shared/logger"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL applied by EnsureSchema.
func Schema() string { return schemaSQL }

// Options tunes connection setup.
type Options struct {
	// MaxAttempts bounds connect-and-ping attempts. Defaults to 5.
	MaxAttempts int

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	Logger *logger.Logger

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o *Options) setDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 25
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 5
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = 5 * time.Minute
	}
	if o.Logger == nil {
		o.Logger = logger.New("database")
	}
	if o.Sleep == nil {
		o.Sleep = sleep
	}
}

// Open connects to PostgreSQL, retrying while DNS or the server come up.
// The wait after attempt n is 2n seconds.
func Open(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("database url is empty")
	}
	return connect(ctx, func() (*sql.DB, error) {
		return sql.Open("postgres", databaseURL)
	}, opts)
}

func connect(ctx context.Context, open func() (*sql.DB, error), opts Options) (*sql.DB, error) {
	opts.setDefaults()

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		db, err := open()
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				db.SetMaxOpenConns(opts.MaxOpenConns)
				db.SetMaxIdleConns(opts.MaxIdleConns)
				db.SetConnMaxLifetime(opts.ConnMaxLifetime)
				opts.Logger.Info("", "", "database connected", map[string]interface{}{
					"attempt":      attempt,
					"max_attempts": opts.MaxAttempts,
				})
				return db, nil
			}
			_ = db.Close()
		}
		lastErr = err

		if attempt == opts.MaxAttempts {
			break
		}
		backoff := time.Duration(attempt*2) * time.Second
		opts.Logger.Warn("", "", "database connection failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"backoff": backoff.String(),
			"error":   err.Error(),
		})
		if err := opts.Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", opts.MaxAttempts, lastErr)
}

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
