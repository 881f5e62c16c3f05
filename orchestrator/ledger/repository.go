// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package ledger

import (
	"context"
)

// Repository defines the storage interface for attempt records
type Repository interface {
	// InsertAttempt appends one record and sets its ID.
	InsertAttempt(ctx context.Context, record *AttemptRecord) error

	// ListAttempts returns the records of one logical call ordered by attempt number.
	ListAttempts(ctx context.Context, tenantID, correlationID string) ([]AttemptRecord, error)

	// Ping checks connectivity to the backing store
	Ping(ctx context.Context) error
}

// NoOpRepository discards every record. Used when no database is configured.
type NoOpRepository struct{}

var _ Repository = (*NoOpRepository)(nil)

func (r *NoOpRepository) InsertAttempt(ctx context.Context, record *AttemptRecord) error {
	return nil
}

func (r *NoOpRepository) ListAttempts(ctx context.Context, tenantID, correlationID string) ([]AttemptRecord, error) {
	return []AttemptRecord{}, nil
}

func (r *NoOpRepository) Ping(ctx context.Context) error {
	return nil
}
