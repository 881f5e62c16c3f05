// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"vocalbridge/platform/orchestrator/cost"
	"vocalbridge/platform/orchestrator/message"
)

func newSendCmd(g *globalFlags) *cobra.Command {
	var (
		agentID       string
		primary       string
		fallback      string
		systemPrompt  string
		tenantID      string
		sessionID     string
		text          string
		key           string
		correlationID string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Process one message through retry, fallback, metering and replay",
		Long: "Sends a message to a configured agent (--agent) or to an ad-hoc agent " +
			"built from --primary and --fallback, and prints the response as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			agent := message.Agent{ID: "cli", TenantID: tenantID, PrimaryProvider: primary, FallbackProvider: fallback, SystemPrompt: systemPrompt}
			if agentID != "" {
				var ok bool
				if agent, ok = app.Config.Agent(agentID); !ok {
					return fmt.Errorf("agent %q is not configured", agentID)
				}
			}

			resp, err := app.Handler.HandleMessage(cmd.Context(), message.Request{
				TenantID:       tenantID,
				Agent:          agent,
				SessionID:      sessionID,
				UserMessage:    text,
				IdempotencyKey: key,
				CorrelationID:  correlationID,
			})
			if err != nil {
				return err
			}

			out := map[string]interface{}{
				"id":             resp.ID,
				"session_id":     resp.SessionID,
				"role":           resp.Role,
				"content":        resp.Content,
				"provider_used":  resp.ProviderUsed,
				"tokens_in":      resp.TokensIn,
				"tokens_out":     resp.TokensOut,
				"latency_ms":     resp.LatencyMs,
				"correlation_id": resp.CorrelationID,
				"cost":           cost.Format(resp.Cost),
				"created_at":     resp.CreatedAt,
				"replayed":       resp.Replayed,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "configured agent id")
	cmd.Flags().StringVar(&primary, "primary", "vendorA", "primary provider when --agent is not set")
	cmd.Flags().StringVar(&fallback, "fallback", "vendorB", "fallback provider when --agent is not set")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "You are a helpful assistant.", "system prompt when --agent is not set")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (required)")
	cmd.Flags().StringVarP(&text, "message", "m", "", "user message (required)")
	cmd.Flags().StringVar(&key, "idempotency-key", "", "replay key")
	cmd.Flags().StringVar(&correlationID, "correlation-id", "", "correlation id (generated when empty)")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("session")
	cmd.MarkFlagRequired("message")
	return cmd
}
