// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package message processes one end-user message: replay from the
// idempotency cache, or a resilient vendor call followed by exactly one
// usage record and a cache write.
package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vocalbridge/platform/common/usage"
	"vocalbridge/platform/orchestrator/cost"
	"vocalbridge/platform/orchestrator/idempotency"
	"vocalbridge/platform/orchestrator/llm"
	"vocalbridge/platform/orchestrator/reliability"
	"vocalbridge/platform/shared/logger"
)

// VendorCaller runs the retry and fallback protocol.
type VendorCaller interface {
	CallWithFallback(ctx context.Context, scope reliability.CallScope, primary, fallback string, req llm.VendorRequest) (*llm.NormalizedResponse, error)
}

// UsageRecorder persists one billable event.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, p usage.UsageParams) (*usage.UsageRecord, error)
}

// ResponseCache stores final responses for replay.
type ResponseCache interface {
	GetCachedResponse(ctx context.Context, key, tenantID string) (idempotency.Document, bool, error)
	CacheResponse(ctx context.Context, key, tenantID string, doc idempotency.Document, ttl time.Duration) error
}

// PriceChecker reports whether a provider can be billed.
type PriceChecker interface {
	Has(provider string) bool
}

// Handler is the caller-facing entry point of the orchestration core.
type Handler struct {
	caller  VendorCaller
	meter   UsageRecorder
	cache   ResponseCache
	pricing PriceChecker
	log     *logger.Logger
	now     func() time.Time
	ttl     time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithClock sets the clock used for latency and timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithCacheTTL overrides the cache's default TTL for responses.
func WithCacheTTL(ttl time.Duration) Option {
	return func(h *Handler) { h.ttl = ttl }
}

// NewHandler wires the handler. cache may be nil to disable replay.
func NewHandler(caller VendorCaller, meter UsageRecorder, cache ResponseCache, pricing PriceChecker, opts ...Option) *Handler {
	h := &Handler{
		caller:  caller,
		meter:   meter,
		cache:   cache,
		pricing: pricing,
		log:     logger.New("message-handler"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (r *Request) validate() error {
	switch {
	case r.TenantID == "":
		return fmt.Errorf("%w: tenant_id is required", ErrInvalidRequest)
	case r.Agent.ID == "":
		return fmt.Errorf("%w: agent id is required", ErrInvalidRequest)
	case r.Agent.PrimaryProvider == "":
		return fmt.Errorf("%w: agent has no primary provider", ErrInvalidRequest)
	case r.SessionID == "":
		return fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	case r.UserMessage == "":
		return fmt.Errorf("%w: message is empty", ErrInvalidRequest)
	}
	return nil
}

// HandleMessage processes one message. With an idempotency key, a live cached
// response is returned without calling any vendor or recording usage.
func (h *Handler) HandleMessage(ctx context.Context, req Request) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	if err := h.checkPricing(req.Agent); err != nil {
		return nil, err
	}

	useCache := h.cache != nil && req.IdempotencyKey != ""
	if useCache {
		doc, ok, err := h.cache.GetCachedResponse(ctx, req.IdempotencyKey, req.TenantID)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup failed: %w", err)
		}
		if ok {
			resp, err := FromDocument(doc)
			if err == nil {
				resp.Replayed = true
				h.log.Info(req.TenantID, req.CorrelationID, "replaying cached response", map[string]interface{}{
					"idempotency_key": req.IdempotencyKey,
					"message_id":      resp.ID.String(),
				})
				return resp, nil
			}
			h.log.Warn(req.TenantID, req.CorrelationID, "cached response unusable, re-executing", map[string]interface{}{
				"idempotency_key": req.IdempotencyKey,
				"error":           err.Error(),
			})
		}
	}

	start := h.now()
	vendorResp, err := h.caller.CallWithFallback(ctx,
		reliability.CallScope{TenantID: req.TenantID, SessionID: req.SessionID, CorrelationID: req.CorrelationID},
		req.Agent.PrimaryProvider, req.Agent.FallbackProvider,
		llm.VendorRequest{SystemPrompt: req.Agent.SystemPrompt, UserMessage: req.UserMessage, History: req.History},
	)
	if err != nil {
		h.log.ErrorWithCode(req.TenantID, req.CorrelationID, "vendor call failed", llm.StatusCode(err), err, map[string]interface{}{
			"agent_id": req.Agent.ID,
		})
		return nil, err
	}
	latency := h.now().Sub(start)

	provider := vendorResp.Provider
	if provider == "" {
		provider = req.Agent.PrimaryProvider
	}

	resp := &Response{
		ID:            uuid.New(),
		SessionID:     req.SessionID,
		Role:          string(llm.RoleAssistant),
		Content:       vendorResp.Text,
		ProviderUsed:  provider,
		TokensIn:      vendorResp.TokensIn,
		TokensOut:     vendorResp.TokensOut,
		LatencyMs:     latency.Milliseconds(),
		CorrelationID: req.CorrelationID,
		CreatedAt:     h.now().UTC(),
	}

	record, err := h.meter.RecordUsage(ctx, usage.UsageParams{
		TenantID:  req.TenantID,
		AgentID:   req.Agent.ID,
		SessionID: req.SessionID,
		MessageID: resp.ID.String(),
		Provider:  provider,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
		Metadata: map[string]interface{}{
			"correlation_id": req.CorrelationID,
			"latency_ms":     resp.LatencyMs,
			"fallback_used":  provider != req.Agent.PrimaryProvider,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}
	resp.Cost = record.Cost

	if useCache {
		if err := h.cache.CacheResponse(ctx, req.IdempotencyKey, req.TenantID, resp.ToDocument(), h.ttl); err != nil {
			h.log.Error(req.TenantID, req.CorrelationID, "failed to cache response", map[string]interface{}{
				"idempotency_key": req.IdempotencyKey,
				"error":           err.Error(),
			})
		}
	}

	h.log.InfoWithDuration(req.TenantID, req.CorrelationID, "message processed", float64(resp.LatencyMs), map[string]interface{}{
		"agent_id":      req.Agent.ID,
		"provider_used": provider,
		"cost":          cost.Format(resp.Cost),
	})
	return resp, nil
}

func (h *Handler) checkPricing(agent Agent) error {
	if h.pricing == nil {
		return nil
	}
	for _, provider := range []string{agent.PrimaryProvider, agent.FallbackProvider} {
		if provider != "" && !h.pricing.Has(provider) {
			return fmt.Errorf("agent %s: %w: %q has no price", agent.ID, cost.ErrUnknownProvider, provider)
		}
	}
	return nil
}

// IsConfigError reports whether err is a misconfiguration rather than a
// vendor failure.
func IsConfigError(err error) bool {
	return errors.Is(err, cost.ErrUnknownProvider) || errors.Is(err, llm.ErrUnknownProvider) || errors.Is(err, ErrInvalidRequest)
}
