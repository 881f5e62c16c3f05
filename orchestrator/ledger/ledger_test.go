// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package ledger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocalbridge/platform/shared/logger"
)

func newTestLedger(repo Repository) (*Ledger, *bytes.Buffer) {
	var buf bytes.Buffer
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return New(repo,
		WithLogger(logger.NewWithWriter("attempt-ledger", &buf)),
		WithClock(func() time.Time { return fixed }),
	), &buf
}

func TestLogAttemptStampsCreationTime(t *testing.T) {
	repo := NewMemoryRepository()
	lg, _ := newTestLedger(repo)

	err := lg.LogAttempt(context.Background(), AttemptRecord{
		TenantID: "t1", CorrelationID: "c1", Provider: "vendorA", AttemptNumber: 1, Outcome: OutcomeSuccess,
	})
	require.NoError(t, err)

	all := repo.All()
	require.Len(t, all, 1)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), all[0].CreatedAt)
	assert.Equal(t, int64(1), all[0].ID)
}

func TestLogAttemptValidation(t *testing.T) {
	lg, _ := newTestLedger(NewMemoryRepository())

	tests := []struct {
		name string
		rec  AttemptRecord
	}{
		{"missing tenant", AttemptRecord{CorrelationID: "c", Provider: "p", AttemptNumber: 1, Outcome: OutcomeRetry}},
		{"missing correlation", AttemptRecord{TenantID: "t", Provider: "p", AttemptNumber: 1, Outcome: OutcomeRetry}},
		{"missing provider", AttemptRecord{TenantID: "t", CorrelationID: "c", AttemptNumber: 1, Outcome: OutcomeRetry}},
		{"zero attempt", AttemptRecord{TenantID: "t", CorrelationID: "c", Provider: "p", Outcome: OutcomeRetry}},
		{"bad outcome", AttemptRecord{TenantID: "t", CorrelationID: "c", Provider: "p", AttemptNumber: 1, Outcome: "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, lg.LogAttempt(context.Background(), tt.rec), ErrInvalidRecord)
		})
	}
}

func TestLogAttemptRepositoryFailure(t *testing.T) {
	repo := NewMemoryRepository()
	repo.InsertErr = errors.New("disk full")
	lg, buf := newTestLedger(repo)

	err := lg.LogAttempt(context.Background(), AttemptRecord{
		TenantID: "t1", CorrelationID: "c1", Provider: "vendorA", AttemptNumber: 1, Outcome: OutcomeError,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, buf.String(), "failed to write attempt record")
	assert.Contains(t, buf.String(), `"correlation_id":"c1"`)
}

func TestAttemptsOrderedByAttemptNumber(t *testing.T) {
	repo := NewMemoryRepository()
	lg, _ := newTestLedger(repo)
	ctx := context.Background()

	for _, n := range []int{3, 1, 2} {
		require.NoError(t, lg.LogAttempt(ctx, AttemptRecord{
			TenantID: "t1", CorrelationID: "c1", Provider: "vendorA", AttemptNumber: n, Outcome: OutcomeRetry,
		}))
	}
	require.NoError(t, lg.LogAttempt(ctx, AttemptRecord{
		TenantID: "t1", CorrelationID: "other", Provider: "vendorA", AttemptNumber: 1, Outcome: OutcomeSuccess,
	}))

	records, err := lg.Attempts(ctx, "t1", "c1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, i+1, rec.AttemptNumber)
	}

	_, err = lg.Attempts(ctx, "t1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNilRepositoryDiscards(t *testing.T) {
	lg := New(nil)
	require.NoError(t, lg.LogAttempt(context.Background(), AttemptRecord{
		TenantID: "t", CorrelationID: "c", Provider: "p", AttemptNumber: 1, Outcome: OutcomeSuccess,
	}))
	assert.NoError(t, lg.Ping(context.Background()))
}
