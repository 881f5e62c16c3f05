// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps records in Redis under idempotency:{len(tenant)}:{tenant}:{key}
// with a native TTL, so expired records disappear without a sweep. The length
// prefix keeps tenant ids containing ':' from aliasing another tenant's keys.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

type redisEnvelope struct {
	TenantID  string          `json:"tenant_id"`
	Key       string          `json:"key"`
	Response  json.RawMessage `json:"response"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromURL parses a redis:// URL and verifies connectivity.
func NewRedisStoreFromURL(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func redisKey(key, tenantID string) string {
	return fmt.Sprintf("idempotency:%d:%s:%s", len(tenantID), tenantID, key)
}

func (s *RedisStore) Get(ctx context.Context, key, tenantID string, now time.Time) (*Record, error) {
	raw, err := s.client.Get(ctx, redisKey(key, tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}

	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if env.TenantID != tenantID || env.Key != key {
		return nil, ErrNotFound
	}

	rec := &Record{
		Key:       key,
		TenantID:  tenantID,
		Response:  []byte(env.Response),
		CreatedAt: env.CreatedAt,
		ExpiresAt: env.ExpiresAt,
	}
	if rec.Expired(now) {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *RedisStore) Put(ctx context.Context, record *Record) error {
	ttl := record.ExpiresAt.Sub(record.CreatedAt)
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(redisEnvelope{
		TenantID:  record.TenantID,
		Key:       record.Key,
		Response:  json.RawMessage(record.Response),
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}

	if err := s.client.Set(ctx, redisKey(record.Key, record.TenantID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op; Redis expires keys itself.
func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
