// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired idempotency records once",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.Sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired idempotency records\n", n)
			return nil
		},
	}
}
