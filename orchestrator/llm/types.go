// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package llm defines the normalized contract between the orchestration core
// and the interchangeable text-generation vendors behind it.
package llm

import (
	"time"
)

// Role identifies the speaker of a prior conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// VendorRequest is the normalized request sent to every vendor.
// It is built per call and never mutated after construction.
type VendorRequest struct {
	// SystemPrompt carries the agent's system instructions.
	SystemPrompt string `json:"system_prompt"`

	// UserMessage is the end-user text for this turn.
	UserMessage string `json:"user_message"`

	// History holds optional prior turns, oldest first.
	History []Turn `json:"history,omitempty"`
}

// NormalizedResponse is produced by a successful adapter call.
type NormalizedResponse struct {
	// Text is the generated output.
	Text string `json:"text"`

	// TokensIn is the vendor-reported prompt token count.
	TokensIn int `json:"tokens_in"`

	// TokensOut is the vendor-reported completion token count.
	TokensOut int `json:"tokens_out"`

	// Latency is the measured wall time of the vendor call.
	Latency time.Duration `json:"latency"`

	// Provider is the name of the adapter that produced the response.
	// The resilient caller stamps it so callers can bill the vendor
	// that actually served the request.
	Provider string `json:"provider,omitempty"`
}

// LatencyMs returns the latency in whole milliseconds.
func (r *NormalizedResponse) LatencyMs() int64 {
	return r.Latency.Milliseconds()
}

// Turns returns the request history followed by the current user message.
// Adapters use it to build vendor-specific message lists.
func (r VendorRequest) Turns() []Turn {
	turns := make([]Turn, 0, len(r.History)+1)
	turns = append(turns, r.History...)
	return append(turns, Turn{Role: RoleUser, Content: r.UserMessage})
}
