// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package usage

import (
	"context"
	"sort"
	"sync"
)

// Repository defines the storage interface for usage records
type Repository interface {
	InsertUsage(ctx context.Context, record *UsageRecord) error
	ListUsage(ctx context.Context, query UsageQuery) ([]UsageRecord, error)
}

// MemoryRepository keeps usage records in process memory. Used when no
// database is configured and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []UsageRecord
	nextID  int64

	// Errors returned instead of touching the records, when set.
	InsertErr error
	ListErr   error
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) InsertUsage(ctx context.Context, record *UsageRecord) error {
	if r.InsertErr != nil {
		return r.InsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	record.ID = r.nextID
	r.records = append(r.records, *record)
	return nil
}

func (r *MemoryRepository) ListUsage(ctx context.Context, q UsageQuery) ([]UsageRecord, error) {
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []UsageRecord
	for _, rec := range r.records {
		if rec.TenantID != q.TenantID {
			continue
		}
		if q.AgentID != "" && rec.AgentID != q.AgentID {
			continue
		}
		if q.Provider != "" && rec.Provider != q.Provider {
			continue
		}
		if !q.From.IsZero() && rec.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !rec.CreatedAt.Before(q.To) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Count returns the number of stored records.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// All returns every stored record in insertion order.
func (r *MemoryRepository) All() []UsageRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]UsageRecord, len(r.records))
	copy(out, r.records)
	return out
}
