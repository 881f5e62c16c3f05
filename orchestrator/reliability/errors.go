// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package reliability

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidScope is returned when a call lacks tenant or correlation id.
var ErrInvalidScope = errors.New("call scope requires tenant_id and correlation_id")

// AllVendorsFailedError is the terminal failure of a logical call. It names
// the primary cause and, when a fallback was attempted, the fallback cause.
type AllVendorsFailedError struct {
	Primary     string
	PrimaryErr  error
	Fallback    string
	FallbackErr error

	// Attempts is the number of ledger records written for the call,
	// including the fallback marker.
	Attempts int
}

func (e *AllVendorsFailedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "primary vendor %s failed: %v", e.Primary, e.PrimaryErr)
	if e.FallbackErr != nil {
		fmt.Fprintf(&sb, "; fallback vendor %s also failed: %v", e.Fallback, e.FallbackErr)
	}
	return sb.String()
}

// Unwrap exposes both causes to errors.Is and errors.As.
func (e *AllVendorsFailedError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.PrimaryErr != nil {
		errs = append(errs, e.PrimaryErr)
	}
	if e.FallbackErr != nil {
		errs = append(errs, e.FallbackErr)
	}
	return errs
}

// FallbackAttempted reports whether the fallback provider was tried.
func (e *AllVendorsFailedError) FallbackAttempted() bool {
	return e.FallbackErr != nil
}
