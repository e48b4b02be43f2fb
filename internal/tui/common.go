// Package tui implements the terminal user interface using Bubble Tea.
package tui

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Common key binding constants.
const (
	KeyCtrlC = "ctrl+c"
	KeyCtrlJ = "ctrl+j"
	KeyCtrlR = "ctrl+r"
	KeyCtrlT = "ctrl+t"
	KeyEnter = "enter"
	KeyEsc   = "esc"
	KeyUp    = "up"
	KeyDown  = "down"
	KeyPgUp  = "pgup"
	KeyPgDn  = "pgdown"
)

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// NewProgram builds the program for m. The program stops when ctx is
// cancelled. altScreen is used for interactive sessions so the summary
// replaces the conversation instead of scrolling below it.
func NewProgram(ctx context.Context, m tea.Model, altScreen bool) *tea.Program {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return tea.NewProgram(m, opts...)
}
