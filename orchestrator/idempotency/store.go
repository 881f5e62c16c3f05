// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package idempotency

import (
	"context"
	"time"
)

// Record is one cached response, keyed by (Key, TenantID).
type Record struct {
	Key       string
	TenantID  string
	Response  []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record is no longer visible at now.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Store persists idempotency records.
type Store interface {
	// Get returns the live record for (key, tenantID) or ErrNotFound.
	// Records whose expiry is at or before now are never returned.
	Get(ctx context.Context, key, tenantID string, now time.Time) (*Record, error)

	// Put inserts or replaces the record for (key, tenantID).
	Put(ctx context.Context, record *Record) error

	// DeleteExpired removes records expired at now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
