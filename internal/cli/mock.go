// mock.go implements the "panelsim mock-backend" command, a local stand-in
// for the panel backend.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/panelsim/panelsim/internal/mockbackend"
)

var mockCmd = &cobra.Command{
	Use:   "mock-backend",
	Short: "Serve a mock panel backend",
	Long: `Serve the backend HTTP API locally, replaying the embedded question bank.
Point a session at it with --backend or PANELSIM_BACKEND_URL.`,
	RunE: runMock,
}

var (
	mockAddr    string
	mockBank    string
	mockLog     bool
	mockMaxIdle time.Duration
)

func init() {
	mockCmd.Flags().StringVar(&mockAddr, "addr", "127.0.0.1:8080", "Listen address")
	mockCmd.Flags().StringVar(&mockBank, "bank", "", "Path to a question bank YAML file (default: embedded bank)")
	mockCmd.Flags().BoolVar(&mockLog, "log-requests", false, "Log every request")
	mockCmd.Flags().DurationVar(&mockMaxIdle, "max-idle", 30*time.Minute, "Drop sessions idle for longer than this")
}

func runMock(cmd *cobra.Command, args []string) error {
	opts := mockbackend.Options{Addr: mockAddr, LogRequests: mockLog}
	if mockBank != "" {
		data, err := os.ReadFile(mockBank)
		if err != nil {
			return fmt.Errorf("reading question bank: %w", err)
		}
		bank, err := mockbackend.LoadBank(data)
		if err != nil {
			return err
		}
		opts.Bank = bank
	}

	srv, err := mockbackend.NewServer(opts)
	if err != nil {
		return err
	}
	srv.StartSessionReaper(mockMaxIdle, time.Minute)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	fmt.Fprintf(cmd.OutOrStdout(), "Mock backend listening on %s\n", srv.URL())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping mock backend: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Mock backend stopped.")
	return nil
}
