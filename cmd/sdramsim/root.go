package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sdramsim",
		Short: "sdramsim simulates a single-port SDRAM controller cycle by cycle.",
		Long: `sdramsim simulates a single-port SDRAM controller cycle by ` +
			`cycle. The controller drives a behavioural device model that ` +
			`checks every timing rule, while a memory tester writes random ` +
			`words and reads them back. Defaults of all flags can be set ` +
			`with SDRAMSIM_* environment variables or a .env file.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newReportCmd())

	return rootCmd
}
