// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package usage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// PostgresRepository stores usage records in the usage_events table
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) InsertUsage(ctx context.Context, record *UsageRecord) error {
	var metadata interface{}
	if len(record.Metadata) > 0 {
		raw, err := json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = string(raw)
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO usage_events (
			tenant_id, agent_id, session_id, message_id, provider,
			tokens_in, tokens_out, cost, event_type, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		record.TenantID, record.AgentID, record.SessionID, nullString(record.MessageID), record.Provider,
		record.TokensIn, record.TokensOut, record.Cost.StringFixed(6), record.EventType, metadata, record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert usage event: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListUsage(ctx context.Context, q UsageQuery) ([]UsageRecord, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{q.TenantID}

	add := func(cond string, v interface{}) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if q.AgentID != "" {
		add("agent_id = $%d", q.AgentID)
	}
	if q.Provider != "" {
		add("provider = $%d", q.Provider)
	}
	if !q.From.IsZero() {
		add("created_at >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("created_at < $%d", q.To)
	}

	query := `
		SELECT id, tenant_id, agent_id, session_id, message_id, provider,
			tokens_in, tokens_out, cost, event_type, metadata, created_at
		FROM usage_events
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY created_at ASC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage events: %w", err)
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var rec UsageRecord
		var messageID sql.NullString
		var metadata []byte

		if err := rows.Scan(
			&rec.ID, &rec.TenantID, &rec.AgentID, &rec.SessionID, &messageID, &rec.Provider,
			&rec.TokensIn, &rec.TokensOut, &rec.Cost, &rec.EventType, &metadata, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		if messageID.Valid {
			rec.MessageID = messageID.String
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage events: %w", err)
	}
	return records, nil
}

// nullString converts an empty string to NULL for database insertion
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
