// clean.go implements the "panelsim clean" command for manual run directory cleanup.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/panelsim/panelsim/internal/cleanup"
	"github.com/panelsim/panelsim/internal/config"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old run directories",
	Long: `Remove old run directories from .panelsim/runs/.

By default, removes runs older than the configured max_age_days (default 30).
Use --keep to keep only the N most recent runs instead.
Use --dry-run to preview what would be removed.`,
	RunE: runClean,
}

var (
	keepFlag   int
	dryRunFlag bool
)

func init() {
	cleanCmd.Flags().IntVar(&keepFlag, "keep", 0, "Keep only the last N runs (0 = use age-based cleanup)")
	cleanCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Preview what would be removed without deleting")
}

func runClean(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	runsDir := config.RunsDir(root)
	if _, err := os.Stat(runsDir); os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs to clean up.")
		return nil
	}

	var pruned []string
	if keepFlag > 0 {
		pruned, err = cleanup.PruneKeepRecent(runsDir, keepFlag, dryRunFlag)
	} else {
		cfg, cfgErr := config.Load(root)
		if cfgErr != nil {
			return cfgErr
		}
		maxAge := cfg.Cleanup.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 30
		}
		pruned, err = cleanup.PruneByAge(runsDir, maxAge, time.Now(), dryRunFlag)
	}
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(pruned) == 0 {
		fmt.Fprintln(out, "No runs to clean up.")
		return nil
	}

	verb := "Removed"
	if dryRunFlag {
		verb = "Would remove"
	}
	for _, name := range pruned {
		fmt.Fprintf(out, "  %s %s\n", verb, name)
	}
	fmt.Fprintf(out, "%s %d run(s).\n", verb, len(pruned))
	return nil
}
