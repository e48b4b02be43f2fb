package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/panelsim/panelsim/internal/sequencer"
)

// Role identifies who produced a conversation entry.
type Role string

const (
	RolePanel         Role = "panel"
	RoleUser          Role = "user"
	RoleTranscription Role = "transcription"
	RoleSystem        Role = "system"
)

// ChatMessage is one entry of the on-screen conversation.
type ChatMessage struct {
	Role    Role
	Speaker string
	Content string
}

// Controls are the user commands a screen can issue. *sequencer.Sequencer
// satisfies it.
type Controls interface {
	SubmitText(text string)
	StartRecording()
	StopRecording()
	Retry()
	Quit()
}

// Sender delivers messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Renderer forwards sequencer frames to a Bubble Tea program. Frames that
// arrive before Attach are queued and flushed in order on attach.
type Renderer struct {
	mu      sync.Mutex
	to      Sender
	pending []sequencer.Frame
}

var _ sequencer.Renderer = (*Renderer)(nil)

// NewRenderer returns a detached renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Attach connects the renderer to a program and flushes queued frames.
// It blocks until the program's event loop accepts them, so call it after
// the program has been started.
func (r *Renderer) Attach(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to = s
	for _, f := range r.pending {
		s.Send(FrameMsg{Frame: f})
	}
	r.pending = nil
}

// Render implements sequencer.Renderer.
func (r *Renderer) Render(f sequencer.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.to == nil {
		r.pending = append(r.pending, f)
		return
	}
	r.to.Send(FrameMsg{Frame: f})
}
