// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package ledger

import (
	"context"
	"fmt"
	"time"

	"vocalbridge/platform/shared/logger"
)

// Ledger appends attempt records and reads them back per logical call.
type Ledger struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(lg *Ledger) { lg.log = l }
}

// WithClock sets the clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(lg *Ledger) { lg.now = now }
}

// New creates a ledger backed by repo. A nil repo discards records.
func New(repo Repository, opts ...Option) *Ledger {
	if repo == nil {
		repo = &NoOpRepository{}
	}
	lg := &Ledger{
		repo: repo,
		log:  logger.New("attempt-ledger"),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(lg)
	}
	return lg
}

// LogAttempt appends one attempt record. The creation time is stamped here
// when the caller leaves it zero.
func (l *Ledger) LogAttempt(ctx context.Context, record AttemptRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = l.now().UTC()
	}
	if err := record.Validate(); err != nil {
		return err
	}

	if err := l.repo.InsertAttempt(ctx, &record); err != nil {
		l.log.Error(record.TenantID, record.CorrelationID, "failed to write attempt record", map[string]interface{}{
			"provider":       record.Provider,
			"attempt_number": record.AttemptNumber,
			"outcome":        string(record.Outcome),
			"error":          err.Error(),
		})
		return fmt.Errorf("ledger: %w", err)
	}

	fields := map[string]interface{}{
		"provider":       record.Provider,
		"attempt_number": record.AttemptNumber,
		"outcome":        string(record.Outcome),
	}
	if record.HTTPStatus != nil {
		fields["http_status"] = *record.HTTPStatus
	}
	if record.LatencyMs != nil {
		fields["latency_ms"] = *record.LatencyMs
	}
	if record.ErrorMessage != "" {
		fields["error"] = record.ErrorMessage
	}
	l.log.Debug(record.TenantID, record.CorrelationID, "vendor attempt recorded", fields)
	return nil
}

// Attempts returns the records for one logical call ordered by attempt number.
func (l *Ledger) Attempts(ctx context.Context, tenantID, correlationID string) ([]AttemptRecord, error) {
	records, err := l.repo.ListAttempts(ctx, tenantID, correlationID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// Ping checks the backing store.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.repo.Ping(ctx)
}
