package sequencer

import (
	"github.com/panelsim/panelsim/internal/countdown"
	"github.com/panelsim/panelsim/internal/session"
)

// FrameKind selects what the presentation layer draws.
type FrameKind int

const (
	FramePrompt FrameKind = iota
	FrameInputDisabled
	FrameCountdown
	FrameClosing
	FrameSummary
)

func (k FrameKind) String() string {
	switch k {
	case FramePrompt:
		return "prompt"
	case FrameInputDisabled:
		return "input_disabled"
	case FrameCountdown:
		return "countdown"
	case FrameClosing:
		return "closing"
	case FrameSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Frame is one render request. Before and After are the session states
// around the transition that produced it; a redraw has Before == After.
type Frame struct {
	Kind   FrameKind
	Before session.State
	After  session.State

	Prompt        session.Prompt
	Turn          int
	Recording     bool
	Notice        string
	Transcription string

	Countdown string
	Remaining int
	Level     countdown.Level
	Crossed   []countdown.Level

	Message   string
	EndReason session.EndReason
	Summary   *session.Session
	Turns     []session.Turn
}

// Renderer draws frames. Render is called from the sequencer goroutine and
// must not block for long.
type Renderer interface {
	Render(Frame)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(Frame)

// Render calls f(fr).
func (f RenderFunc) Render(fr Frame) { f(fr) }
