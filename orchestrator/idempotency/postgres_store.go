// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store on the idempotency_keys table
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key, tenantID string, now time.Time) (*Record, error) {
	query := `
		SELECT response, created_at, expires_at
		FROM idempotency_keys
		WHERE key = $1 AND tenant_id = $2 AND expires_at > $3`

	rec := &Record{Key: key, TenantID: tenantID}
	err := s.db.QueryRowContext(ctx, query, key, tenantID, now).Scan(&rec.Response, &rec.CreatedAt, &rec.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Put(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO idempotency_keys (key, tenant_id, response, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key, tenant_id) DO UPDATE SET
			response = EXCLUDED.response,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`

	_, err := s.db.ExecContext(ctx, query,
		record.Key, record.TenantID, string(record.Response), record.CreatedAt, record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired idempotency records: %w", err)
	}
	return result.RowsAffected()
}
