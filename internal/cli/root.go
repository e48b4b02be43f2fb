// Package cli defines Cobra command definitions for the panelsim CLI.
// This file contains the root command, version flag, and help output.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/panelsim/panelsim/internal/tui"
)

var version = "dev" // set via ldflags at build time

var rootCmd = &cobra.Command{
	Use:   "panelsim",
	Short: "Rehearse a presentation in front of a simulated executive panel",
	Long: `panelsim runs a mock Q&A session: a panel of virtual executives asks
questions about your report and you answer by typing or speaking, within
a question or time budget. Each session is saved with its report and
transcript under .panelsim/runs/.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Without a subcommand, start a session on a terminal and show help otherwise.
		if !tui.IsTTY() {
			return cmd.Help()
		}
		return runRun(cmd, args)
	},
}

// Execute runs the root command. Called from main.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(cleanCmd)
}
