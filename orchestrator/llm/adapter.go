// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package llm

import (
	"context"
)

// Adapter is the capability every vendor implementation exposes.
// Implementations must be safe for concurrent use and hold no state shared
// with other adapters.
type Adapter interface {
	// Name returns the provider name agents are configured with,
	// e.g. "vendorA". It is also the pricing key.
	Name() string

	// Call sends the request and returns the normalized response.
	// The context carries the per-attempt deadline; adapters must return
	// promptly once it is done.
	Call(ctx context.Context, req VendorRequest) (*NormalizedResponse, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, req VendorRequest) (*NormalizedResponse, error)
}

// Name implements Adapter.
func (f AdapterFunc) Name() string { return f.ProviderName }

// Call implements Adapter.
func (f AdapterFunc) Call(ctx context.Context, req VendorRequest) (*NormalizedResponse, error) {
	return f.Fn(ctx, req)
}

var _ Adapter = AdapterFunc{}
