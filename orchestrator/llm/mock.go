// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package llm

import (
	"context"
	"sync"
	"time"
)

// MockStep is one scripted outcome of a MockAdapter call.
type MockStep struct {
	Response *NormalizedResponse
	Err      error

	// Block makes the call wait for context cancellation before returning.
	Block bool
}

// MockAdapter replays scripted outcomes in order. Once the script is
// exhausted the last step repeats. It records every request it receives.
type MockAdapter struct {
	ProviderName string
	Steps        []MockStep

	mu       sync.Mutex
	calls    int
	requests []VendorRequest
}

// NewMockAdapter creates a mock that always succeeds with text.
func NewMockAdapter(name, text string, tokensIn, tokensOut int) *MockAdapter {
	return &MockAdapter{
		ProviderName: name,
		Steps: []MockStep{{Response: &NormalizedResponse{
			Text:      text,
			TokensIn:  tokensIn,
			TokensOut: tokensOut,
			Latency:   5 * time.Millisecond,
		}}},
	}
}

// NewFailingMockAdapter creates a mock that always fails with err.
func NewFailingMockAdapter(name string, err error) *MockAdapter {
	return &MockAdapter{ProviderName: name, Steps: []MockStep{{Err: err}}}
}

// Name implements Adapter.
func (m *MockAdapter) Name() string { return m.ProviderName }

// Call implements Adapter.
func (m *MockAdapter) Call(ctx context.Context, req VendorRequest) (*NormalizedResponse, error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.requests = append(m.requests, req)
	var step MockStep
	if len(m.Steps) > 0 {
		if idx >= len(m.Steps) {
			idx = len(m.Steps) - 1
		}
		step = m.Steps[idx]
	}
	m.mu.Unlock()

	if step.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if step.Err != nil {
		return nil, step.Err
	}
	if step.Response == nil {
		return nil, ErrEmptyResponse
	}
	resp := *step.Response
	return &resp, nil
}

// Calls returns how many times Call was invoked.
func (m *MockAdapter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of the received requests.
func (m *MockAdapter) Requests() []VendorRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]VendorRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

var _ Adapter = (*MockAdapter)(nil)
