// Package ui provides the line-oriented session display used when stdout
// is not a terminal (CI, piping, screen readers).
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/panelsim/panelsim/internal/countdown"
	"github.com/panelsim/panelsim/internal/sequencer"
	"github.com/panelsim/panelsim/internal/session"
)

// Console prints sequencer frames as plain lines. It only prints on
// changes: a new prompt, a notice, a threshold crossing, each whole minute
// of a countdown, closing and the summary.
type Console struct {
	mu         sync.Mutex
	out        io.Writer
	lastTurn   int
	lastNotice string
	lastState  session.State
	lastMinute int
	recording  bool
}

var _ sequencer.Renderer = (*Console)(nil)

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out, lastTurn: -1, lastMinute: -1}
}

// Render implements sequencer.Renderer.
func (c *Console) Render(f sequencer.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch f.Kind {
	case sequencer.FramePrompt:
		c.transcription(f.Transcription)
		if f.Turn != c.lastTurn && f.Prompt.Question != "" {
			c.lastTurn = f.Turn
			c.lastNotice = ""
			tag := ""
			if f.Prompt.IsFollowUp {
				tag = " (follow-up)"
			}
			fmt.Fprintf(c.out, "\n[Q%d] %s%s:\n  %s\n", f.Turn+1, f.Prompt.Speaker(), tag, f.Prompt.Question)
			c.printCountdown(f)
			fmt.Fprintln(c.out, "> Type your answer, or /record to answer by voice.")
		}
		if f.Recording && !c.recording {
			fmt.Fprintln(c.out, "* Recording... type /stop to finish.")
		}
		c.recording = f.Recording
		if f.Notice != "" && f.Notice != c.lastNotice {
			fmt.Fprintf(c.out, "! %s\n", f.Notice)
			if f.Before == session.Submitting {
				fmt.Fprintln(c.out, "  Type /retry to send it again.")
			}
		}
		c.lastNotice = f.Notice

	case sequencer.FrameInputDisabled:
		c.recording = false
		if f.After == session.Submitting && c.lastState != session.Submitting {
			fmt.Fprintln(c.out, "... submitting your answer")
		}
		c.transcription(f.Transcription)

	case sequencer.FrameCountdown:
		for _, l := range f.Crossed {
			switch l {
			case countdown.LevelWarning:
				fmt.Fprintf(c.out, "! %s remaining. Start wrapping up.\n", f.Countdown)
			case countdown.LevelDanger:
				fmt.Fprintf(c.out, "! %s remaining!\n", f.Countdown)
			}
		}
		if len(f.Crossed) == 0 && f.Remaining > 0 && f.Remaining%60 == 0 && f.Remaining/60 != c.lastMinute {
			c.printCountdown(f)
		}

	case sequencer.FrameClosing:
		c.transcription(f.Transcription)
		fmt.Fprintf(c.out, "\n%s\n", f.Message)

	case sequencer.FrameSummary:
		if f.Summary != nil {
			fmt.Fprintln(c.out)
			fmt.Fprint(c.out, Summary(*f.Summary))
		}
	}
	c.lastState = f.After
}

func (c *Console) transcription(text string) {
	if text != "" {
		fmt.Fprintf(c.out, "  (transcribed) %s\n", text)
	}
}

func (c *Console) printCountdown(f sequencer.Frame) {
	if f.Countdown == "" {
		return
	}
	c.lastMinute = f.Remaining / 60
	fmt.Fprintf(c.out, "  [%s remaining]\n", f.Countdown)
}

// Summary formats the outcome of a closed session.
func Summary(s session.Session) string {
	var b strings.Builder

	b.WriteString("Session complete\n")
	fmt.Fprintf(&b, "  Budget:    %s\n", s.Budget)
	fmt.Fprintf(&b, "  Ended:     %s\n", s.EndReason)
	fmt.Fprintf(&b, "  Answered:  %d of %d questions\n", s.Answered(), len(s.Turns))
	if !s.StartTime.IsZero() && !s.EndTime.IsZero() {
		fmt.Fprintf(&b, "  Duration:  %s\n", formatDuration(s.EndTime.Sub(s.StartTime)))
	}
	return b.String()
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", h, m, s)
}
