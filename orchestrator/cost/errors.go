// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package cost

import "errors"

var (
	// ErrUnknownProvider is returned when a provider has no pricing entry
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNegativeTokens is returned for negative token counts
	ErrNegativeTokens = errors.New("token counts must not be negative")

	// ErrNegativePrice is returned when a price entry is below zero
	ErrNegativePrice = errors.New("price must not be negative")
)
