// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps attempt records in process memory. Used when no
// database is configured and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []AttemptRecord
	nextID  int64

	// Errors returned instead of touching the records, when set.
	InsertErr error
	ListErr   error
	PingErr   error
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) InsertAttempt(ctx context.Context, record *AttemptRecord) error {
	if r.InsertErr != nil {
		return r.InsertErr
	}
	if err := record.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	record.ID = r.nextID
	r.records = append(r.records, *record)
	return nil
}

func (r *MemoryRepository) ListAttempts(ctx context.Context, tenantID, correlationID string) ([]AttemptRecord, error) {
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []AttemptRecord
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.CorrelationID == correlationID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return r.PingErr
}

// All returns every stored record in insertion order.
func (r *MemoryRepository) All() []AttemptRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AttemptRecord, len(r.records))
	copy(out, r.records)
	return out
}
