// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package idempotency

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocalbridge/platform/shared/logger"
)

func TestNewSweeperRejectsBadSchedule(t *testing.T) {
	cache, _ := newTestCache(NewMemoryStore())
	_, err := NewSweeper(cache, "every tuesday", nil)
	assert.Error(t, err)

	_, err = NewSweeper(cache, "*/5 * * * * *", nil)
	assert.Error(t, err, "seconds field is not accepted")
}

func TestSweeperSweep(t *testing.T) {
	store := NewMemoryStore()
	cache, clock := newTestCache(store)
	ctx := context.Background()

	require.NoError(t, cache.CacheResponse(ctx, "old", "t", Document{"v": 1}, time.Minute))
	require.NoError(t, cache.CacheResponse(ctx, "new", "t", Document{"v": 2}, time.Hour))
	clock.Advance(10 * time.Minute)

	var buf bytes.Buffer
	sweeper, err := NewSweeper(cache, "", logger.NewWithWriter("idempotency-sweeper", &buf))
	require.NoError(t, err)

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, store.Len())
	assert.Contains(t, buf.String(), "idempotency sweep completed")

	sweeper.Start()
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	sweeper.Stop(stopCtx)
}
