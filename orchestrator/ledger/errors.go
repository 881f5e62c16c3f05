// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecord is returned when an attempt record is missing required fields
	ErrInvalidRecord = errors.New("invalid attempt record")

	// ErrNotFound is returned when no attempts exist for a correlation id
	ErrNotFound = errors.New("no attempts found")
)

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, reason)
}
