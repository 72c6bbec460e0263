package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/keshon/lighthouse/internal/commands/debug"
	"github.com/keshon/lighthouse/internal/sysinfo"
)

// diagCmd prints the same diagnostics block /debug info sends, without a token.
var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Print host and process diagnostics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := sysinfo.NewHost().Collect(cmd.Context())
		if err != nil {
			return fmt.Errorf("collect diagnostics: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), debug.Title)
		fmt.Fprintln(cmd.OutOrStdout(), debug.InfoBlock(snap, time.Now()))
		return nil
	},
}
