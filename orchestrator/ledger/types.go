// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package ledger is the append-only audit trail of vendor attempts. Every
// attempt the resilient caller makes produces exactly one record, so a
// logical call can be reconstructed by sorting its records on attempt number.
package ledger

import (
	"time"
)

// Outcome is the result of one vendor attempt.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRetry    Outcome = "retry"
	OutcomeFallback Outcome = "fallback"
	OutcomeError    Outcome = "error"
)

// IsValid reports whether o is a known outcome.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeRetry, OutcomeFallback, OutcomeError:
		return true
	}
	return false
}

// AttemptRecord is one row per vendor attempt. Records are write-once.
type AttemptRecord struct {
	ID            int64     `json:"id"`
	TenantID      string    `json:"tenant_id"`
	SessionID     string    `json:"session_id"`
	CorrelationID string    `json:"correlation_id"`
	Provider      string    `json:"provider"`
	AttemptNumber int       `json:"attempt_number"`
	Outcome       Outcome   `json:"outcome"`
	HTTPStatus    *int      `json:"http_status,omitempty"`
	LatencyMs     *int64    `json:"latency_ms,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the fields every record must carry.
func (r *AttemptRecord) Validate() error {
	switch {
	case r == nil:
		return ErrInvalidRecord
	case r.TenantID == "":
		return invalid("tenant_id is required")
	case r.CorrelationID == "":
		return invalid("correlation_id is required")
	case r.Provider == "":
		return invalid("provider is required")
	case r.AttemptNumber < 1:
		return invalid("attempt_number must be positive")
	case !r.Outcome.IsValid():
		return invalid("unknown outcome " + string(r.Outcome))
	}
	return nil
}

// Int returns a pointer to v, for optional record fields.
func Int(v int) *int { return &v }

// Int64 returns a pointer to v, for optional record fields.
func Int64(v int64) *int64 { return &v }
