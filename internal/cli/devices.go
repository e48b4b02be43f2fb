// devices.go implements the "panelsim devices" command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/panelsim/panelsim/internal/capture"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List microphones",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := capture.ListCaptureDevices()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "No capture devices found. Answers can still be typed.")
			return nil
		}
		for _, n := range names {
			fmt.Fprintf(out, "  %s\n", n)
		}
		return nil
	},
}
