// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package message

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vocalbridge/platform/orchestrator/cost"
	"vocalbridge/platform/orchestrator/idempotency"
	"vocalbridge/platform/orchestrator/llm"
)

// Agent is the tenant-configured persona a message is addressed to.
type Agent struct {
	ID               string `json:"id" yaml:"id"`
	TenantID         string `json:"tenant_id" yaml:"tenant_id"`
	PrimaryProvider  string `json:"primary_provider" yaml:"primary_provider"`
	FallbackProvider string `json:"fallback_provider,omitempty" yaml:"fallback_provider"`
	SystemPrompt     string `json:"system_prompt" yaml:"system_prompt"`
}

// Request is one end-user message.
type Request struct {
	TenantID    string
	Agent       Agent
	SessionID   string
	UserMessage string
	History     []llm.Turn

	// IdempotencyKey enables replay of the final response when set.
	IdempotencyKey string

	// CorrelationID groups every vendor attempt of this request. Generated
	// when empty.
	CorrelationID string
}

// Response is the assistant reply returned to the caller and cached for replay.
type Response struct {
	ID            uuid.UUID       `json:"id"`
	SessionID     string          `json:"session_id"`
	Role          string          `json:"role"`
	Content       string          `json:"content"`
	ProviderUsed  string          `json:"provider_used"`
	TokensIn      int             `json:"tokens_in"`
	TokensOut     int             `json:"tokens_out"`
	LatencyMs     int64           `json:"latency_ms"`
	CorrelationID string          `json:"correlation_id"`
	Cost          decimal.Decimal `json:"cost"`
	CreatedAt     time.Time       `json:"created_at"`

	// Replayed is true when the response came from the idempotency cache.
	Replayed bool `json:"-"`
}

// ToDocument renders the response as a cacheable document.
func (r *Response) ToDocument() idempotency.Document {
	return idempotency.Document{
		"id":             r.ID,
		"session_id":     r.SessionID,
		"role":           r.Role,
		"content":        r.Content,
		"provider_used":  r.ProviderUsed,
		"tokens_in":      r.TokensIn,
		"tokens_out":     r.TokensOut,
		"latency_ms":     r.LatencyMs,
		"correlation_id": r.CorrelationID,
		"cost":           cost.Format(r.Cost),
		"created_at":     r.CreatedAt,
	}
}

// FromDocument rebuilds a response from a cached document. Any missing or
// mistyped field is an error.
func FromDocument(doc idempotency.Document) (*Response, error) {
	var r Response
	var err error

	str := func(field string) string {
		if err != nil {
			return ""
		}
		s, ok := doc[field].(string)
		if !ok {
			err = fmt.Errorf("field %q: expected string, got %T", field, doc[field])
		}
		return s
	}
	num := func(field string) int64 {
		if err != nil {
			return 0
		}
		n, nerr := toInt64(doc[field])
		if nerr != nil {
			err = fmt.Errorf("field %q: %w", field, nerr)
		}
		return n
	}

	rawID := str("id")
	r.SessionID = str("session_id")
	r.Role = str("role")
	r.Content = str("content")
	r.ProviderUsed = str("provider_used")
	r.CorrelationID = str("correlation_id")
	rawCost := str("cost")
	rawCreated := str("created_at")
	r.TokensIn = int(num("tokens_in"))
	r.TokensOut = int(num("tokens_out"))
	r.LatencyMs = num("latency_ms")
	if err != nil {
		return nil, err
	}

	if r.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("field \"id\": %w", err)
	}
	if r.Cost, err = decimal.NewFromString(rawCost); err != nil {
		return nil, fmt.Errorf("field \"cost\": %w", err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, rawCreated); err != nil {
		return nil, fmt.Errorf("field \"created_at\": %w", err)
	}
	if r.Role == "" || r.ProviderUsed == "" {
		return nil, fmt.Errorf("role and provider_used are required")
	}
	return &r, nil
}

// ValidateDocument reports whether doc reconstructs into a Response.
func ValidateDocument(doc idempotency.Document) error {
	_, err := FromDocument(doc)
	return err
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case float64:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
