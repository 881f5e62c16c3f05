// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package message

import "errors"

// ErrInvalidRequest is returned when a message request is missing required fields
var ErrInvalidRequest = errors.New("invalid message request")
