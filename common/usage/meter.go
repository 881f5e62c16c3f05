// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package usage

import (
	"context"
	"fmt"
	"time"

	"vocalbridge/platform/orchestrator/cost"
	"vocalbridge/platform/shared/logger"
)

// Meter prices and persists usage events.
type Meter struct {
	pricing *cost.PricingTable
	repo    Repository
	log     *logger.Logger
	now     func() time.Time
}

// MeterOption configures a Meter.
type MeterOption func(*Meter)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) MeterOption {
	return func(m *Meter) { m.log = l }
}

// WithClock sets the clock used to stamp records.
func WithClock(now func() time.Time) MeterOption {
	return func(m *Meter) { m.now = now }
}

// NewMeter creates a meter.
func NewMeter(pricing *cost.PricingTable, repo Repository, opts ...MeterOption) *Meter {
	m := &Meter{
		pricing: pricing,
		repo:    repo,
		log:     logger.New("usage-meter"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (p UsageParams) validate() error {
	switch {
	case p.TenantID == "":
		return fmt.Errorf("%w: tenant_id is required", ErrInvalidEvent)
	case p.AgentID == "":
		return fmt.Errorf("%w: agent_id is required", ErrInvalidEvent)
	case p.SessionID == "":
		return fmt.Errorf("%w: session_id is required", ErrInvalidEvent)
	case p.Provider == "":
		return fmt.Errorf("%w: provider is required", ErrInvalidEvent)
	case p.TokensIn < 0 || p.TokensOut < 0:
		return fmt.Errorf("%w: token counts must not be negative", ErrInvalidEvent)
	}
	return nil
}

// RecordUsage computes the cost of one event and persists it. It must be
// called at most once per non-replayed logical request.
func (m *Meter) RecordUsage(ctx context.Context, p UsageParams) (*UsageRecord, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	amount, err := m.pricing.CalculateCost(p.Provider, p.TokensIn, p.TokensOut)
	if err != nil {
		return nil, err
	}

	eventType := p.EventType
	if eventType == "" {
		eventType = EventMessage
	}

	rec := &UsageRecord{
		TenantID:  p.TenantID,
		AgentID:   p.AgentID,
		SessionID: p.SessionID,
		MessageID: p.MessageID,
		Provider:  p.Provider,
		TokensIn:  p.TokensIn,
		TokensOut: p.TokensOut,
		Cost:      amount,
		EventType: eventType,
		Metadata:  p.Metadata,
		CreatedAt: m.now().UTC(),
	}
	if err := m.repo.InsertUsage(ctx, rec); err != nil {
		m.log.Error(p.TenantID, "", "failed to record usage", map[string]interface{}{
			"provider": p.Provider,
			"error":    err.Error(),
		})
		return nil, err
	}

	usageCost.WithLabelValues(p.Provider).Add(amount.InexactFloat64())
	usageTokens.WithLabelValues(p.Provider, "in").Add(float64(p.TokensIn))
	usageTokens.WithLabelValues(p.Provider, "out").Add(float64(p.TokensOut))

	m.log.Info(p.TenantID, "", "usage recorded", map[string]interface{}{
		"usage_id":   rec.ID,
		"agent_id":   p.AgentID,
		"session_id": p.SessionID,
		"provider":   p.Provider,
		"tokens_in":  p.TokensIn,
		"tokens_out": p.TokensOut,
		"cost":       cost.Format(amount),
	})
	return rec, nil
}

// ListUsage returns the tenant's usage records in the query window.
func (m *Meter) ListUsage(ctx context.Context, q UsageQuery) ([]UsageRecord, error) {
	if q.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id is required", ErrInvalidQuery)
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidQuery)
	}
	return m.repo.ListUsage(ctx, q)
}
