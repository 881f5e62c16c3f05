// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package idempotency caches final responses under a caller-supplied key,
// namespaced by tenant, so a retried request replays instead of re-executing.
//
// The lookup and the later write are not atomic: two concurrent requests
// with the same key may both miss and both execute. The last write wins.
package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vocalbridge/platform/shared/logger"
)

const (
	// DefaultTTL is how long a cached response stays visible.
	DefaultTTL = 24 * time.Hour

	// MaxKeyLength bounds caller-supplied keys.
	MaxKeyLength = 255
)

// Document is a cached response in its generic JSON object form.
type Document map[string]interface{}

// Cache reads and writes idempotency records through a Store.
type Cache struct {
	store     Store
	ttl       time.Duration
	log       *logger.Logger
	now       func() time.Time
	validator func(Document) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the default TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithClock sets the clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithValidator rejects decoded documents that do not reconstruct into a
// valid response. A rejected document is treated as a miss.
func WithValidator(v func(Document) error) Option {
	return func(c *Cache) { c.validator = v }
}

// NewCache creates a cache over store.
func NewCache(store Store, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		ttl:   DefaultTTL,
		log:   logger.New("idempotency-cache"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the default TTL.
func (c *Cache) TTL() time.Duration { return c.ttl }

func validateKey(key, tenantID string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	case len(key) > MaxKeyLength:
		return fmt.Errorf("%w: key exceeds %d characters", ErrInvalidKey, MaxKeyLength)
	case tenantID == "":
		return fmt.Errorf("%w: tenant_id is empty", ErrInvalidKey)
	}
	return nil
}

// GetCachedResponse returns the live cached document for (key, tenantID).
// The boolean is false on a miss, on an expired record and on a payload that
// cannot be decoded or validated. Store failures are returned as errors.
func (c *Cache) GetCachedResponse(ctx context.Context, key, tenantID string) (Document, bool, error) {
	if err := validateKey(key, tenantID); err != nil {
		return nil, false, err
	}

	rec, err := c.store.Get(ctx, key, tenantID, c.now())
	switch {
	case errors.Is(err, ErrNotFound):
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	case errors.Is(err, ErrCorruptPayload):
		c.corrupt(tenantID, key, err)
		return nil, false, nil
	case err != nil:
		cacheLookups.WithLabelValues("error").Inc()
		return nil, false, err
	}

	doc, err := decodeDocument(rec.Response)
	if err == nil && c.validator != nil {
		err = c.validator(doc)
	}
	if err != nil {
		c.corrupt(tenantID, key, err)
		return nil, false, nil
	}

	cacheLookups.WithLabelValues("hit").Inc()
	c.log.Debug(tenantID, "", "idempotency cache hit", map[string]interface{}{
		"idempotency_key": key,
		"expires_at":      rec.ExpiresAt.UTC().Format(time.RFC3339),
	})
	return doc, true, nil
}

func (c *Cache) corrupt(tenantID, key string, err error) {
	cacheLookups.WithLabelValues("corrupt").Inc()
	c.log.Warn(tenantID, "", "ignoring corrupt cached response", map[string]interface{}{
		"idempotency_key": key,
		"error":           err.Error(),
	})
}

// CacheResponse stores doc under (key, tenantID), replacing any previous
// record and resetting its expiry. A non-positive ttl uses the default.
func (c *Cache) CacheResponse(ctx context.Context, key, tenantID string, doc Document, ttl time.Duration) error {
	if err := validateKey(key, tenantID); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	payload, err := json.Marshal(Normalize(map[string]interface{}(doc)))
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	now := c.now().UTC()
	return c.store.Put(ctx, &Record{
		Key:       key,
		TenantID:  tenantID,
		Response:  payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
}

// CleanupExpired deletes expired records. It only reclaims space; reads
// already ignore expired records.
func (c *Cache) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := c.store.DeleteExpired(ctx, c.now().UTC())
	if err != nil {
		return 0, err
	}
	expiredSwept.Add(float64(n))
	return n, nil
}

func decodeDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: not an object", ErrCorruptPayload)
	}
	return Document(doc), nil
}
