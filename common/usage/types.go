// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package usage

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventMessage is the event type of an ordinary message exchange.
const EventMessage = "message"

// UsageParams are the inputs of one billable event
type UsageParams struct {
	TenantID  string
	AgentID   string
	SessionID string
	MessageID string // Optional
	Provider  string
	TokensIn  int
	TokensOut int
	EventType string                 // Defaults to EventMessage
	Metadata  map[string]interface{} // Optional
}

// UsageRecord is one persisted billable event
type UsageRecord struct {
	ID        int64                  `json:"id"`
	TenantID  string                 `json:"tenant_id"`
	AgentID   string                 `json:"agent_id"`
	SessionID string                 `json:"session_id"`
	MessageID string                 `json:"message_id,omitempty"`
	Provider  string                 `json:"provider"`
	TokensIn  int                    `json:"tokens_in"`
	TokensOut int                    `json:"tokens_out"`
	Cost      decimal.Decimal        `json:"cost"`
	EventType string                 `json:"event_type"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// UsageQuery filters usage records. Zero values mean "no bound".
type UsageQuery struct {
	TenantID string
	AgentID  string
	Provider string
	From     time.Time // inclusive
	To       time.Time // exclusive
	Limit    int
}

// Summary aggregates a set of usage records
type Summary struct {
	Events     int                        `json:"events"`
	TokensIn   int64                      `json:"tokens_in"`
	TokensOut  int64                      `json:"tokens_out"`
	Cost       decimal.Decimal            `json:"cost"`
	ByProvider map[string]decimal.Decimal `json:"by_provider"`
}

// Summarize totals tokens and cost, overall and per provider.
func Summarize(records []UsageRecord) Summary {
	s := Summary{Cost: decimal.Zero, ByProvider: make(map[string]decimal.Decimal)}
	for _, r := range records {
		s.Events++
		s.TokensIn += int64(r.TokensIn)
		s.TokensOut += int64(r.TokensOut)
		s.Cost = s.Cost.Add(r.Cost)
		s.ByProvider[r.Provider] = s.ByProvider[r.Provider].Add(r.Cost)
	}
	return s
}
