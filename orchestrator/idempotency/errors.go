// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package idempotency

import "errors"

var (
	// ErrInvalidKey is returned for an empty or oversized key or tenant id
	ErrInvalidKey = errors.New("invalid idempotency key")

	// ErrNotFound is returned by stores when no live record exists
	ErrNotFound = errors.New("idempotency record not found")

	// ErrCorruptPayload marks a stored response that cannot be decoded
	ErrCorruptPayload = errors.New("corrupt cached response")
)
