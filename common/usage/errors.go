// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package usage

import "errors"

var (
	// ErrInvalidEvent is returned when usage params are missing required fields
	ErrInvalidEvent = errors.New("invalid usage event")

	// ErrInvalidQuery is returned for an unbounded or inverted usage query
	ErrInvalidQuery = errors.New("invalid usage query")
)
