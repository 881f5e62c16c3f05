// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vocalbridge/platform/common/usage"
	"vocalbridge/platform/orchestrator/cost"
)

func newCostCmd(g *globalFlags) *cobra.Command {
	var (
		provider  string
		tokensIn  int
		tokensOut int
	)

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Price a token count for a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			table, err := cfg.PricingTable()
			if err != nil {
				return err
			}
			amount, err := table.CalculateCost(provider, tokensIn, tokensOut)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cost.Format(amount))
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "provider name (required)")
	cmd.Flags().IntVar(&tokensIn, "in", 0, "input tokens")
	cmd.Flags().IntVar(&tokensOut, "out", 0, "output tokens")
	cmd.MarkFlagRequired("provider")
	return cmd
}

func newAttemptsCmd(g *globalFlags) *cobra.Command {
	var tenantID, correlationID string

	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "Print the vendor attempts of one logical call",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.Ledger.Attempts(cmd.Context(), tenantID, correlationID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tPROVIDER\tOUTCOME\tSTATUS\tLATENCY_MS\tERROR")
			for _, r := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					r.AttemptNumber, r.Provider, r.Outcome, optInt(r.HTTPStatus), optInt64(r.LatencyMs), r.ErrorMessage)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&correlationID, "correlation-id", "", "correlation id (required)")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("correlation-id")
	return cmd
}

func newUsageCmd(g *globalFlags) *cobra.Command {
	var (
		q        usage.UsageQuery
		from, to string
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Summarize billed usage for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if q.From, err = parseDate(from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if q.To, err = parseDate(to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			app, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.Meter.ListUsage(cmd.Context(), q)
			if err != nil {
				return err
			}
			writeSummary(cmd, usage.Summarize(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&q.TenantID, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&q.AgentID, "agent", "", "filter by agent id")
	cmd.Flags().StringVar(&q.Provider, "provider", "", "filter by provider")
	cmd.Flags().StringVar(&from, "from", "", "start date, inclusive (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "end date, exclusive (YYYY-MM-DD or RFC3339)")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "maximum records to read")
	cmd.MarkFlagRequired("tenant")
	return cmd
}

func writeSummary(cmd *cobra.Command, s usage.Summary) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Events:\t%d\n", s.Events)
	fmt.Fprintf(w, "Tokens in:\t%d\n", s.TokensIn)
	fmt.Fprintf(w, "Tokens out:\t%d\n", s.TokensOut)
	fmt.Fprintf(w, "Cost:\t%s\n", cost.Format(s.Cost))

	providers := make([]string, 0, len(s.ByProvider))
	for p := range s.ByProvider {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	for _, p := range providers {
		fmt.Fprintf(w, "  %s:\t%s\n", p, cost.Format(s.ByProvider[p]))
	}
	w.Flush()
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optInt64(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}
