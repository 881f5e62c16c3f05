// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package idempotency

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeScalars(t *testing.T) {
	id := uuid.MustParse("6f1c1a3e-2b7a-4b8e-9a55-0d4c6a1f2e3b")
	ts := time.Date(2025, 6, 1, 10, 30, 0, 123000000, time.FixedZone("CET", 3600))
	cost := decimal.RequireFromString("0.001158")

	assert.Equal(t, "0.001158", Normalize(cost))
	assert.Equal(t, "0.001158", Normalize(&cost))
	assert.Equal(t, "2025-06-01T09:30:00.123Z", Normalize(ts))
	assert.Equal(t, id.String(), Normalize(id))
	assert.Equal(t, "1.5s", Normalize(1500*time.Millisecond))
	assert.Equal(t, 42, Normalize(42))
	assert.Equal(t, "x", Normalize("x"))
	assert.Nil(t, Normalize(nil))

	var nilTime *time.Time
	assert.Nil(t, Normalize(nilTime))
}

func TestNormalizeNested(t *testing.T) {
	id := uuid.New()
	in := map[string]interface{}{
		"id":   id,
		"cost": decimal.NewFromFloat(0.25),
		"meta": map[string]interface{}{
			"created": time.Unix(0, 0),
			"tags":    []string{"a", "b"},
		},
		"ids": []uuid.UUID{id},
	}

	out, ok := Normalize(in).(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, id.String(), out["id"])
	assert.Equal(t, "0.25", out["cost"])

	meta := out["meta"].(map[string]interface{})
	assert.Equal(t, "1970-01-01T00:00:00Z", meta["created"])
	assert.Equal(t, []interface{}{"a", "b"}, meta["tags"])
	assert.Equal(t, []interface{}{id.String()}, out["ids"])

	_, err := json.Marshal(out)
	assert.NoError(t, err)
}

func TestNormalizeStruct(t *testing.T) {
	type inner struct {
		Name  string          `json:"name"`
		Price decimal.Decimal `json:"price"`
	}

	out := Normalize(inner{Name: "n", Price: decimal.RequireFromString("1.10")})
	m, ok := out.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "n", m["name"])
	assert.Equal(t, "1.1", m["price"])
}

func TestNormalizeStructKeepsIntegerPrecision(t *testing.T) {
	type counter struct {
		Big int64 `json:"big"`
	}

	out := Normalize(map[string]interface{}{"nested": counter{Big: 9007199254740993}})
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, `{"nested":{"big":9007199254740993}}`, string(raw))
}
