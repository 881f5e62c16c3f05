// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package reliability runs vendor calls through bounded, timed retry loops
// with an optional fallback provider, writing every attempt to the ledger.
package reliability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vocalbridge/platform/orchestrator/ledger"
	"vocalbridge/platform/orchestrator/llm"
	"vocalbridge/platform/shared/logger"
)

// AdapterSource resolves provider names to adapters.
type AdapterSource interface {
	Get(name string) (llm.Adapter, error)
}

// AttemptLogger appends attempt records.
type AttemptLogger interface {
	LogAttempt(ctx context.Context, record ledger.AttemptRecord) error
}

// CallScope identifies the logical call every attempt belongs to.
type CallScope struct {
	TenantID      string
	SessionID     string
	CorrelationID string
}

// Caller executes the primary/fallback state machine.
type Caller struct {
	adapters AdapterSource
	ledger   AttemptLogger
	cfg      Config
	log      *logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// Option configures a Caller.
type Option func(*Caller)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Caller) { c.log = l }
}

// WithSleep replaces the backoff wait. Tests use it to avoid real sleeps.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Caller) { c.sleep = sleep }
}

// WithClock sets the clock used to measure attempt latency.
func WithClock(now func() time.Time) Option {
	return func(c *Caller) { c.now = now }
}

// NewCaller creates a Caller. The configuration is validated once here.
func NewCaller(adapters AdapterSource, attempts AttemptLogger, cfg Config, opts ...Option) (*Caller, error) {
	if adapters == nil {
		return nil, errors.New("adapter source is required")
	}
	if attempts == nil {
		return nil, errors.New("attempt logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}

	c := &Caller{
		adapters: adapters,
		ledger:   attempts,
		cfg:      cfg,
		log:      logger.New("resilient-caller"),
		sleep:    sleepWithContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the retry policy.
func (c *Caller) Config() Config { return c.cfg }

// CallWithFallback calls the primary provider and, once its retry loop is
// exhausted, the fallback provider when one is named. Attempt numbers run
// continuously across both loops. The returned response has Provider set to
// the provider that produced it.
//
// Unknown provider names fail before any attempt is made or logged. Any other
// terminal failure is an *AllVendorsFailedError.
func (c *Caller) CallWithFallback(ctx context.Context, scope CallScope, primary, fallback string, req llm.VendorRequest) (*llm.NormalizedResponse, error) {
	if scope.TenantID == "" || scope.CorrelationID == "" {
		return nil, ErrInvalidScope
	}

	primaryAdapter, err := c.adapters.Get(primary)
	if err != nil {
		return nil, err
	}
	var fallbackAdapter llm.Adapter
	if fallback != "" {
		if fallbackAdapter, err = c.adapters.Get(fallback); err != nil {
			return nil, err
		}
	}

	attempt := 0

	c.log.Info(scope.TenantID, scope.CorrelationID, "calling primary vendor", map[string]interface{}{
		"provider": primary,
	})
	resp, primaryErr := c.retryLoop(ctx, scope, primaryAdapter, req, &attempt)
	if primaryErr == nil {
		return resp, nil
	}
	var ledgerErr *ledgerWriteError
	if errors.As(primaryErr, &ledgerErr) {
		return nil, ledgerErr.err
	}

	c.log.Error(scope.TenantID, scope.CorrelationID, "primary vendor exhausted", map[string]interface{}{
		"provider": primary,
		"attempts": attempt,
		"error":    primaryErr.Error(),
	})

	failure := &AllVendorsFailedError{Primary: primary, PrimaryErr: primaryErr, Fallback: fallback}
	if fallbackAdapter == nil || ctx.Err() != nil {
		failure.Attempts = attempt
		vendorCallFailures.WithLabelValues(primary).Inc()
		return nil, failure
	}

	attempt++
	marker := ledger.AttemptRecord{
		TenantID:      scope.TenantID,
		SessionID:     scope.SessionID,
		CorrelationID: scope.CorrelationID,
		Provider:      fallback,
		AttemptNumber: attempt,
		Outcome:       ledger.OutcomeFallback,
		ErrorMessage:  fmt.Sprintf("primary %s failed: %v", primary, primaryErr),
	}
	if err := c.record(ctx, marker); err != nil {
		return nil, err
	}
	vendorFallbacks.WithLabelValues(primary, fallback).Inc()
	c.log.Warn(scope.TenantID, scope.CorrelationID, "falling back to secondary vendor", map[string]interface{}{
		"primary":  primary,
		"fallback": fallback,
	})

	resp, fallbackErr := c.retryLoop(ctx, scope, fallbackAdapter, req, &attempt)
	if fallbackErr == nil {
		return resp, nil
	}
	if errors.As(fallbackErr, &ledgerErr) {
		return nil, ledgerErr.err
	}

	c.log.Error(scope.TenantID, scope.CorrelationID, "fallback vendor exhausted", map[string]interface{}{
		"provider": fallback,
		"attempts": attempt,
		"error":    fallbackErr.Error(),
	})
	failure.FallbackErr = fallbackErr
	failure.Attempts = attempt
	vendorCallFailures.WithLabelValues(primary).Inc()
	return nil, failure
}

// retryLoop makes up to MaxRetries attempts against one adapter. The last
// failing attempt is recorded as the terminal error for that provider and its
// underlying error is returned.
func (c *Caller) retryLoop(ctx context.Context, scope CallScope, adapter llm.Adapter, req llm.VendorRequest, attempt *int) (*llm.NormalizedResponse, error) {
	provider := adapter.Name()
	var lastErr error

	for i := 1; i <= c.cfg.MaxRetries; i++ {
		*attempt++
		start := c.now()
		resp, err := c.callWithTimeout(ctx, adapter, req)
		latency := c.now().Sub(start)
		vendorAttemptDuration.WithLabelValues(provider).Observe(float64(latency.Milliseconds()))

		rec := ledger.AttemptRecord{
			TenantID:      scope.TenantID,
			SessionID:     scope.SessionID,
			CorrelationID: scope.CorrelationID,
			Provider:      provider,
			AttemptNumber: *attempt,
			LatencyMs:     ledger.Int64(latency.Milliseconds()),
		}

		if err == nil {
			rec.Outcome = ledger.OutcomeSuccess
			rec.HTTPStatus = ledger.Int(http.StatusOK)
			if lerr := c.record(ctx, rec); lerr != nil {
				return nil, &ledgerWriteError{err: lerr}
			}
			out := *resp
			out.Provider = provider
			c.log.InfoWithDuration(scope.TenantID, scope.CorrelationID, "vendor call succeeded", float64(latency.Milliseconds()), map[string]interface{}{
				"provider":       provider,
				"attempt_number": *attempt,
				"tokens_in":      resp.TokensIn,
				"tokens_out":     resp.TokensOut,
			})
			return &out, nil
		}

		lastErr = err
		final := i == c.cfg.MaxRetries || ctx.Err() != nil

		rec.Outcome = ledger.OutcomeRetry
		if final {
			rec.Outcome = ledger.OutcomeError
		}
		rec.HTTPStatus = ledger.Int(llm.StatusCode(err))
		rec.ErrorMessage = err.Error()
		if lerr := c.record(ctx, rec); lerr != nil {
			return nil, &ledgerWriteError{err: lerr}
		}

		c.log.Warn(scope.TenantID, scope.CorrelationID, "vendor attempt failed", map[string]interface{}{
			"provider":       provider,
			"attempt_number": *attempt,
			"http_status":    *rec.HTTPStatus,
			"error":          err.Error(),
		})

		if final {
			break
		}
		if err := c.sleep(ctx, c.cfg.Backoff(i)); err != nil {
			return nil, fmt.Errorf("%w (interrupted backoff after: %v)", err, lastErr)
		}
	}

	return nil, lastErr
}

// callWithTimeout bounds one adapter call by the per-attempt timeout. The
// deadline is enforced even if the adapter ignores its context.
func (c *Caller) callWithTimeout(ctx context.Context, adapter llm.Adapter, req llm.VendorRequest) (*llm.NormalizedResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	type result struct {
		resp *llm.NormalizedResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := adapter.Call(attemptCtx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && r.resp == nil {
			return nil, &llm.VendorError{Provider: adapter.Name(), Err: llm.ErrEmptyResponse}
		}
		if r.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, c.timeoutError(adapter)
		}
		return r.resp, r.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, c.timeoutError(adapter)
	}
}

func (c *Caller) timeoutError(adapter llm.Adapter) error {
	return fmt.Errorf("%s: %w after %s", adapter.Name(), llm.ErrTimeout, c.cfg.Timeout)
}

// record writes an attempt on a context detached from cancellation so an
// interrupted call still leaves its terminal record.
func (c *Caller) record(ctx context.Context, rec ledger.AttemptRecord) error {
	vendorAttempts.WithLabelValues(rec.Provider, string(rec.Outcome)).Inc()
	if err := c.ledger.LogAttempt(context.WithoutCancel(ctx), rec); err != nil {
		return fmt.Errorf("failed to record attempt %d: %w", rec.AttemptNumber, err)
	}
	return nil
}

// ledgerWriteError marks a failure to persist an attempt. It aborts the call
// instead of being treated as a vendor failure.
type ledgerWriteError struct {
	err error
}

func (e *ledgerWriteError) Error() string { return e.err.Error() }
func (e *ledgerWriteError) Unwrap() error { return e.err }

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
