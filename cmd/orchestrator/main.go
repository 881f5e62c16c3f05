// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Command orchestrator runs and inspects the vendor orchestration core.
//
// Usage:
//
//	orchestrator serve                 # /health, /prometheus and the idempotency sweeper
//	orchestrator send --agent support --tenant acme --session s1 --message "hi"
//	orchestrator cost --provider vendorA --in 1000 --out 500
//	orchestrator attempts --tenant acme --correlation-id <id>
//	orchestrator usage --tenant acme --from 2025-01-01
//	orchestrator sweep
//
// Environment Variables:
//
//	DATABASE_URL - PostgreSQL connection string (in-memory storage when unset)
//	REDIS_URL - Redis URL for IDEMPOTENCY_STORE=redis
//	OPENAI_API_KEY - vendorA API key
//	GOOGLE_API_KEY - vendorB API key
//	VENDOR_TIMEOUT_SECONDS, VENDOR_MAX_RETRIES - retry policy
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vocalbridge/platform/orchestrator"
	"vocalbridge/platform/orchestrator/config"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// newApp is replaced in tests.
var newApp = func(ctx context.Context, cfg *config.Config) (*orchestrator.App, error) {
	return orchestrator.New(ctx, cfg)
}

type globalFlags struct {
	configPath string
	envPath    string
}

func (g *globalFlags) load() (*config.Config, error) {
	return config.Load(g.configPath, g.envPath)
}

func (g *globalFlags) app(ctx context.Context) (*orchestrator.App, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "orchestrator",
		Short:         "Resilient LLM vendor orchestration",
		Long:          "Calls LLM vendors with retry and fallback, meters usage and replays idempotent requests.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&g.envPath, "env-file", ".env", "path to .env file")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newSendCmd(g))
	cmd.AddCommand(newCostCmd(g))
	cmd.AddCommand(newAttemptsCmd(g))
	cmd.AddCommand(newUsageCmd(g))
	cmd.AddCommand(newSweepCmd(g))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "orchestrator %s (commit: %s)\n", Version, Commit)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func main() {
	orchestrator.Version = Version
	os.Exit(execute(newRootCmd()))
}
