// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// Ensure PostgresRepository implements Repository
var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertAttempt appends an attempt record. Rows are never updated.
func (r *PostgresRepository) InsertAttempt(ctx context.Context, record *AttemptRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO attempt_ledger (
			tenant_id, session_id, correlation_id, provider,
			attempt_number, outcome, http_status, latency_ms,
			error_message, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10
		)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		record.TenantID, record.SessionID, record.CorrelationID, record.Provider,
		record.AttemptNumber, string(record.Outcome), nullInt(record.HTTPStatus), nullInt64(record.LatencyMs),
		nullString(record.ErrorMessage), record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}

	return nil
}

// ListAttempts returns all attempts for a correlation id in attempt order
func (r *PostgresRepository) ListAttempts(ctx context.Context, tenantID, correlationID string) ([]AttemptRecord, error) {
	query := `
		SELECT id, tenant_id, session_id, correlation_id, provider,
			attempt_number, outcome, http_status, latency_ms,
			error_message, created_at
		FROM attempt_ledger
		WHERE tenant_id = $1 AND correlation_id = $2
		ORDER BY attempt_number ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var records []AttemptRecord
	for rows.Next() {
		var rec AttemptRecord
		var outcome string
		var sessionID, errorMessage sql.NullString
		var httpStatus sql.NullInt32
		var latencyMs sql.NullInt64

		if err := rows.Scan(
			&rec.ID, &rec.TenantID, &sessionID, &rec.CorrelationID, &rec.Provider,
			&rec.AttemptNumber, &outcome, &httpStatus, &latencyMs,
			&errorMessage, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}

		rec.Outcome = Outcome(outcome)
		if sessionID.Valid {
			rec.SessionID = sessionID.String
		}
		if httpStatus.Valid {
			rec.HTTPStatus = Int(int(httpStatus.Int32))
		}
		if latencyMs.Valid {
			rec.LatencyMs = Int64(latencyMs.Int64)
		}
		if errorMessage.Valid {
			rec.ErrorMessage = errorMessage.String
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}

	return records, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func nullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
