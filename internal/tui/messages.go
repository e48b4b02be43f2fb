package tui

import (
	"github.com/panelsim/panelsim/internal/sequencer"
	"github.com/panelsim/panelsim/internal/session"
)

// FrameMsg carries one sequencer frame into the program.
type FrameMsg struct {
	Frame sequencer.Frame
}

// SessionEndedMsg is sent once the sequencer has returned. Err is set when
// the session could not run to completion.
type SessionEndedMsg struct {
	Session session.Session
	Err     error
}

// QuitResetMsg clears the pending second Ctrl+C after a timeout.
type QuitResetMsg struct{}
