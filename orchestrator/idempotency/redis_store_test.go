// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_PutAndGet(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Put(ctx, &Record{
		Key: "k", TenantID: "tenant-a", Response: []byte(`{"content":"hi"}`),
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	assert.True(t, mr.Exists("idempotency:8:tenant-a:k"))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("idempotency:8:tenant-a:k").Seconds(), 1)

	rec, err := store.Get(ctx, "k", "tenant-a", now)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"hi"}`, string(rec.Response))

	_, err = store.Get(ctx, "k", "tenant-b", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_NativeExpiry(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Put(ctx, &Record{
		Key: "k", TenantID: "t", Response: []byte(`{}`),
		CreatedAt: now, ExpiresAt: now.Add(time.Minute),
	}))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "k", "t", now)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_LogicalExpiry(t *testing.T) {
	store, _ := newMiniredisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Put(ctx, &Record{
		Key: "k", TenantID: "t", Response: []byte(`{}`),
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	_, err := store.Get(ctx, "k", "t", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CorruptEnvelope(t *testing.T) {
	store, mr := newMiniredisStore(t)
	require.NoError(t, mr.Set("idempotency:1:t:k", "not-json"))

	_, err := store.Get(context.Background(), "k", "t", time.Now())
	assert.ErrorIs(t, err, ErrCorruptPayload)

	cache, _ := newTestCache(store)
	_, ok, err := cache.GetCachedResponse(context.Background(), "k", "t")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_FromURL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store, err := NewRedisStoreFromURL(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer store.Close()

	_, err = NewRedisStoreFromURL(context.Background(), "://bad")
	assert.Error(t, err)
}

func TestRedisStore_TenantWithColonDoesNotAlias(t *testing.T) {
	store, _ := newMiniredisStore(t)
	cache, _ := newTestCache(store)
	ctx := context.Background()

	require.NoError(t, cache.CacheResponse(ctx, "b:c", "acme", Document{"content": "acme secret"}, 0))

	_, ok, err := cache.GetCachedResponse(ctx, "c", "acme:b")
	require.NoError(t, err)
	assert.False(t, ok)

	doc, ok, err := cache.GetCachedResponse(ctx, "b:c", "acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "acme secret", doc["content"])
}

func TestRedisStore_EnvelopeOwnerMismatch(t *testing.T) {
	store, mr := newMiniredisStore(t)
	now := time.Now().UTC()
	envelope := `{"tenant_id":"other","key":"k","response":{},"created_at":"` +
		now.Format(time.RFC3339Nano) + `","expires_at":"` + now.Add(time.Hour).Format(time.RFC3339Nano) + `"}`
	require.NoError(t, mr.Set("idempotency:1:t:k", envelope))

	_, err := store.Get(context.Background(), "k", "t", now)
	assert.ErrorIs(t, err, ErrNotFound)
}
