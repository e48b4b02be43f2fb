// init.go implements the "panelsim init" command with optional --guided flag.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/panelsim/panelsim/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize panelsim in the current directory",
	Long: `Create the .panelsim/ directory with a default config.yaml and
make sure runtime files (event log, journal, runs) are gitignored.`,
	RunE: runInit,
}

var guidedFlag bool

func init() {
	initCmd.Flags().BoolVar(&guidedFlag, "guided", false, "Interactive prompts for configuration overrides")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	stateDir := config.Dir(dir)
	if info, statErr := os.Stat(stateDir); statErr == nil && info.IsDir() {
		fmt.Fprintln(out, "Warning: .panelsim/ directory already exists.")
		fmt.Fprint(out, "Reinitialize? [y/N]: ")
		answer, _ := in.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if mkErr := os.MkdirAll(config.RunsDir(dir), 0755); mkErr != nil {
		return fmt.Errorf("creating directory %s: %w", config.RunsDir(dir), mkErr)
	}

	if err := ensureGitignore(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set up .gitignore: %v\n", err)
	}

	cfg := config.DefaultConfig()
	if guidedFlag {
		cfg = guidedOverrides(cfg, in, out)
	}

	if err := config.WriteConfig(dir, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "Initialized %s\n", filepath.Join(".panelsim", "config.yaml"))
	fmt.Fprintf(out, "Backend: %s\n", cfg.Backend.URL)
	fmt.Fprintln(out, "Start a session with: panelsim run --report <file> --company <name>")
	return nil
}

// guidedOverrides prompts the user for optional configuration overrides.
func guidedOverrides(cfg *config.Config, in *bufio.Reader, out io.Writer) *config.Config {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "--- Guided Configuration ---")

	ask := func(label, current string) string {
		fmt.Fprintf(out, "%s [%s]: ", label, current)
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return ""
		}
		return strings.TrimSpace(line)
	}

	if v := ask("Backend URL", cfg.Backend.URL); v != "" {
		cfg.Backend.URL = v
	}
	if v := ask("Panel (comma-separated roles)", strings.Join(cfg.Setup.Executives, ",")); v != "" {
		var roles []string
		for _, r := range strings.Split(v, ",") {
			if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
				roles = append(roles, r)
			}
		}
		cfg.Setup.Executives = roles
	}
	industry := cfg.Setup.Industry
	if industry == "" {
		industry = "none"
	}
	if v := ask("Industry", industry); v != "" {
		cfg.Setup.Industry = v
	}
	if v := ask("Play the closing message aloud (y/n)", yesNo(cfg.Audio.Playback)); v != "" {
		cfg.Audio.Playback = strings.HasPrefix(strings.ToLower(v), "y")
	}

	fmt.Fprintln(out, "--- End Guided Configuration ---")
	fmt.Fprintln(out)
	return cfg
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// ensureGitignore appends the panelsim runtime entries missing from .gitignore.
func ensureGitignore(dir string) error {
	gitignorePath := filepath.Join(dir, ".gitignore")

	// config.yaml is meant to be committed.
	requiredEntries := []string{
		".env",
		".panelsim/log.jsonl",
		".panelsim/sessions.db",
		".panelsim/runs/",
	}

	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}

	var missing []string
	for _, entry := range requiredEntries {
		if !strings.Contains(existing, entry) {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var toAppend strings.Builder
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		toAppend.WriteString("\n")
	}
	if existing != "" {
		toAppend.WriteString("\n# Added by panelsim init\n")
	}
	for _, entry := range missing {
		toAppend.WriteString(entry + "\n")
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening .gitignore: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(toAppend.String()); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	return nil
}
