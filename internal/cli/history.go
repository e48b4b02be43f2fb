// history.go implements the "panelsim history" command listing journaled sessions.
package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/panelsim/panelsim/internal/config"
	"github.com/panelsim/panelsim/internal/session"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past sessions",
	Long:  `List the most recent sessions recorded in .panelsim/sessions.db.`,
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	dbPath := config.JournalPath(root)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions yet. Start one with: panelsim run")
		return nil
	}

	store, err := session.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sums, err := store.ListSessions(historyLimit)
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions yet. Start one with: panelsim run")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tCOMPANY\tBUDGET\tANSWERS\tVOICE\tENDED")
	for _, s := range sums {
		ended := string(s.EndReason)
		if s.EndedAt.IsZero() {
			ended = "unfinished"
		}
		company := s.Company
		if company == "" {
			company = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			s.StartedAt.Local().Format("2006-01-02 15:04"), company, s.Budget, s.Turns, s.Audio, ended)
	}
	return w.Flush()
}
