// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package cost converts vendor token counts into monetary cost using a
// per-provider price table with fixed-point arithmetic.
package cost

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every cost is quantized to.
const Scale = 6

// ProviderPricing contains pricing per 1K tokens for a provider
type ProviderPricing struct {
	InputPer1K  decimal.Decimal `json:"input_per_1k"`
	OutputPer1K decimal.Decimal `json:"output_per_1k"`
}

// PricingTable holds pricing for every billable provider.
// It is safe for concurrent reads and merges.
type PricingTable struct {
	providers map[string]ProviderPricing
	mu        sync.RWMutex
}

// DefaultPricing returns the built-in price table.
// vendorB is priced at 1.5x vendorA for both directions.
func DefaultPricing() map[string]ProviderPricing {
	return map[string]ProviderPricing{
		"vendorA": {InputPer1K: decimal.RequireFromString("0.002"), OutputPer1K: decimal.RequireFromString("0.002")},
		"vendorB": {InputPer1K: decimal.RequireFromString("0.003"), OutputPer1K: decimal.RequireFromString("0.003")},
	}
}

// NewPricingTable creates a table from explicit entries. A nil map yields
// the default table.
func NewPricingTable(providers map[string]ProviderPricing) (*PricingTable, error) {
	if providers == nil {
		providers = DefaultPricing()
	}
	t := &PricingTable{providers: make(map[string]ProviderPricing, len(providers))}
	if err := t.Merge(providers); err != nil {
		return nil, err
	}
	return t, nil
}

// NewDefaultPricingTable creates a table holding DefaultPricing.
func NewDefaultPricingTable() *PricingTable {
	t, _ := NewPricingTable(nil)
	return t
}

// LoadPricingFromFile merges a JSON file of provider prices over the defaults.
// The file has the shape {"providers": {"vendorA": {"input_per_1k": "0.002", ...}}}.
func LoadPricingFromFile(path string) (*PricingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var custom struct {
		Providers map[string]ProviderPricing `json:"providers"`
	}
	if err := json.Unmarshal(data, &custom); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file %s: %w", path, err)
	}

	t := NewDefaultPricingTable()
	if err := t.Merge(custom.Providers); err != nil {
		return nil, err
	}
	return t, nil
}

// Merge adds or replaces provider entries.
func (t *PricingTable) Merge(providers map[string]ProviderPricing) error {
	for name, p := range providers {
		if p.InputPer1K.IsNegative() || p.OutputPer1K.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativePrice, name)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for name, p := range providers {
		t.providers[name] = p
	}
	return nil
}

// Pricing returns the entry for provider.
func (t *PricingTable) Pricing(provider string) (ProviderPricing, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.providers[provider]
	if !ok {
		return ProviderPricing{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return p, nil
}

// Has reports whether provider is priced.
func (t *PricingTable) Has(provider string) bool {
	_, err := t.Pricing(provider)
	return err == nil
}

// Providers returns the priced provider names in sorted order.
func (t *PricingTable) Providers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.providers))
	for name := range t.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CalculateCost returns (tokensIn/1000)*input + (tokensOut/1000)*output,
// rounded half away from zero to Scale fractional digits.
func (t *PricingTable) CalculateCost(provider string, tokensIn, tokensOut int) (decimal.Decimal, error) {
	if tokensIn < 0 || tokensOut < 0 {
		return decimal.Zero, ErrNegativeTokens
	}

	p, err := t.Pricing(provider)
	if err != nil {
		return decimal.Zero, err
	}

	inputCost := decimal.NewFromInt(int64(tokensIn)).Shift(-3).Mul(p.InputPer1K)
	outputCost := decimal.NewFromInt(int64(tokensOut)).Shift(-3).Mul(p.OutputPer1K)

	return inputCost.Add(outputCost).Round(Scale), nil
}

// Format renders a cost with exactly Scale fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
