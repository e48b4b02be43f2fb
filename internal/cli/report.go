// report.go implements the "panelsim report" command for showing session summaries.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/panelsim/panelsim/internal/config"
)

var reportCmd = &cobra.Command{
	Use:   "report [run]",
	Short: "Show the report of the last session",
	Long: `Display the report saved for the most recent session, or for the named
run directory under .panelsim/runs/.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	runsDir := config.RunsDir(root)

	var runDir string
	if len(args) == 1 {
		runDir = filepath.Join(runsDir, filepath.Base(args[0]))
	} else if runDir, err = latestRun(runsDir); err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(runDir, "report.md"))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no report in %s", runDir)
		}
		return fmt.Errorf("reading report: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// latestRun returns the newest run directory. Run names are timestamps, so
// they sort lexicographically.
func latestRun(runsDir string) (string, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil || len(entries) == 0 {
		return "", fmt.Errorf("no sessions found; start one with: panelsim run")
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() > entries[j].Name()
	})
	for _, e := range entries {
		if e.IsDir() {
			return filepath.Join(runsDir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("no sessions found; start one with: panelsim run")
}
