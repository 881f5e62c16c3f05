// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUnknownProvider is returned when no adapter is registered under a name.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrTimeout marks an attempt that exceeded its per-attempt deadline.
	ErrTimeout = errors.New("vendor call timed out")

	// ErrEmptyResponse is returned when a vendor answers without any content.
	ErrEmptyResponse = errors.New("vendor returned no content")
)

// VendorError wraps a provider-specific failure with transport metadata.
type VendorError struct {
	Provider   string
	StatusCode int
	Temporary  bool
	Err        error
}

func (e *VendorError) Error() string {
	if e == nil {
		return "vendor error"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *VendorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewVendorError builds a VendorError, marking 429 and 5xx as temporary.
func NewVendorError(provider string, status int, err error) *VendorError {
	return &VendorError{
		Provider:   provider,
		StatusCode: status,
		Temporary:  status == http.StatusTooManyRequests || (status >= 500 && status <= 599),
		Err:        err,
	}
}

// StatusCode extracts the transport status carried by err.
// Timeouts map to 504; any other failure without a status maps to 500.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var vendorErr *VendorError
	if errors.As(err, &vendorErr) && vendorErr.StatusCode != 0 {
		return vendorErr.StatusCode
	}
	if IsTimeout(err) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
