// Package views provides TUI view components for panelsim.
package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/panelsim/panelsim/internal/countdown"
	"github.com/panelsim/panelsim/internal/sequencer"
	"github.com/panelsim/panelsim/internal/session"
	"github.com/panelsim/panelsim/internal/tui"
)

// maxSessionWidth is the maximum width for the session box.
const maxSessionWidth = 100

// SessionModel is the screen for one running interview. It draws the
// frames it receives and turns key presses into sequencer commands.
type SessionModel struct {
	keys     tui.KeyMap
	controls tui.Controls
	title    string
	budget   session.Budget

	messages     []tui.ChatMessage
	lastTurn     int
	state        session.State
	recording    bool
	voicePending bool
	canRetry     bool
	countdown    string
	level        countdown.Level
	notice       string
	busy         string
	quitPending  bool

	closingMessage string
	endReason      session.EndReason
	summary        *session.Session
	err            error

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model

	width  int
	height int
}

// NewSessionModel creates the screen. controls receives the user's
// commands, title heads the status bar.
func NewSessionModel(controls tui.Controls, title string, budget session.Budget, width, height int) SessionModel {
	ta := textarea.New()
	ta.Placeholder = "Type your answer... (Enter to send, Ctrl+R to record)"
	ta.CharLimit = 5000
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = tui.DefaultKeyMap.NewLine
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = tui.TitleStyle

	vp := viewport.New(20, 5)
	vp.KeyMap = viewport.KeyMap{
		PageUp:   tui.DefaultKeyMap.ScrollUp,
		PageDown: tui.DefaultKeyMap.ScrollDown,
	}

	m := SessionModel{
		keys:     tui.DefaultKeyMap,
		controls: controls,
		title:    title,
		budget:   budget,
		lastTurn: -1,
		textarea: ta,
		viewport: vp,
		spinner:  sp,
		help:     help.New(),
	}
	if budget.Timed() {
		m.countdown = countdown.Format(budget.Minutes * 60)
	}
	m.resize(width, height)
	return m
}

// Init returns the initial command for the session view.
func (m SessionModel) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the session view.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tui.FrameMsg:
		cmd = m.apply(msg.Frame)
		return m, cmd

	case tui.SessionEndedMsg:
		if msg.Err != nil {
			m.err = msg.Err
		}
		if m.summary == nil && msg.Session.State == session.Closed {
			s := msg.Session
			m.summary = &s
			m.endReason = s.EndReason
		}
		m.busy = ""
		return m, nil

	case tui.QuitResetMsg:
		m.quitPending = false
		return m, nil

	case spinner.TickMsg:
		if m.busy != "" {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.inputEnabled() {
		m.textarea, cmd = m.textarea.Update(msg)
	}
	return m, cmd
}

func (m SessionModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if m.finished() {
		if key.Matches(msg, m.keys.Leave) {
			return m, tea.Quit
		}
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		// First press ends the session, a second one leaves without
		// waiting for the summary.
		if m.quitPending {
			return m, tea.Quit
		}
		m.quitPending = true
		m.controls.Quit()
		return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg {
			return tui.QuitResetMsg{}
		})

	case key.Matches(msg, m.keys.ScrollUp, m.keys.ScrollDown):
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Retry):
		if m.canRetry {
			m.controls.Retry()
		}
		return m, nil
	}

	if !m.inputEnabled() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Record):
		if m.recording {
			m.voicePending = true
			m.controls.StopRecording()
		} else {
			m.controls.StartRecording()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.recording {
			return m, nil
		}
		text := strings.TrimSpace(m.textarea.Value())
		if text != "" {
			m.push(tui.ChatMessage{Role: tui.RoleUser, Speaker: "You", Content: text})
			m.textarea.Reset()
		}
		m.controls.SubmitText(text)
		return m, nil
	}

	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// apply folds one frame into the screen state.
func (m *SessionModel) apply(f sequencer.Frame) tea.Cmd {
	m.state = f.After
	m.recording = f.Recording
	if f.Countdown != "" {
		m.countdown = f.Countdown
		m.level = f.Level
	}

	var cmd tea.Cmd
	switch f.Kind {
	case sequencer.FramePrompt:
		m.addTranscription(f.Transcription)
		if f.Turn != m.lastTurn && f.Prompt.Question != "" {
			m.lastTurn = f.Turn
			m.push(tui.ChatMessage{Role: tui.RolePanel, Speaker: f.Prompt.Speaker(), Content: f.Prompt.Question})
		}
		m.notice = f.Notice
		m.canRetry = f.Before == session.Submitting && f.Notice != ""
		if f.Notice != "" {
			m.voicePending = false
		}
		m.busy = ""
		cmd = m.textarea.Focus()

	case sequencer.FrameInputDisabled:
		m.notice = ""
		m.canRetry = false
		switch f.After {
		case session.Submitting:
			if m.voicePending {
				m.voicePending = false
				m.push(tui.ChatMessage{Role: tui.RoleUser, Speaker: "You", Content: "(voice answer)"})
			}
			m.busy = "Submitting your answer..."
		case session.Displaying:
			m.addTranscription(f.Transcription)
			m.busy = "The panel is considering your answer..."
		}
		m.textarea.Blur()
		cmd = m.spinner.Tick

	case sequencer.FrameCountdown:
		for _, l := range f.Crossed {
			switch l {
			case countdown.LevelWarning:
				m.notice = "Time is running low. Start wrapping up."
			case countdown.LevelDanger:
				m.notice = "Final seconds remaining!"
			}
		}

	case sequencer.FrameClosing:
		m.addTranscription(f.Transcription)
		speaker := "Panel"
		if f.Prompt.Question != "" {
			speaker = f.Prompt.Speaker()
		}
		m.push(tui.ChatMessage{Role: tui.RolePanel, Speaker: speaker, Content: f.Message})
		m.closingMessage = f.Message
		m.endReason = f.EndReason
		m.notice = ""
		m.canRetry = false
		m.busy = "Closing the session..."
		m.textarea.Blur()
		cmd = m.spinner.Tick

	case sequencer.FrameSummary:
		m.summary = f.Summary
		m.endReason = f.EndReason
		if f.Message != "" {
			m.closingMessage = f.Message
		}
		m.busy = ""
		m.textarea.Blur()
	}
	return cmd
}

func (m *SessionModel) addTranscription(text string) {
	if text == "" {
		return
	}
	m.push(tui.ChatMessage{Role: tui.RoleTranscription, Speaker: "Transcribed", Content: text})
}

func (m *SessionModel) push(msg tui.ChatMessage) {
	m.messages = append(m.messages, msg)
	m.viewport.SetContent(formatMessages(m.messages, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m *SessionModel) resize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	m.width = width
	m.height = height
	m.help.Width = width

	inner := min(width, maxSessionWidth) - 8
	if inner < 20 {
		inner = 20
	}
	// Status bar, notice, busy line, textarea and footer.
	vpHeight := height - 16
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport.Width = inner
	m.viewport.Height = vpHeight
	m.textarea.SetWidth(inner)
	m.viewport.SetContent(formatMessages(m.messages, inner))
	m.viewport.GotoBottom()
}

func (m SessionModel) inputEnabled() bool {
	return m.state == session.AwaitingInput && !m.finished()
}

func (m SessionModel) finished() bool {
	return m.summary != nil || m.err != nil
}

// View renders the session view.
func (m SessionModel) View() string {
	if m.finished() {
		return m.boxed(m.summaryView())
	}

	var b strings.Builder

	b.WriteString(m.statusBar())
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")

	switch {
	case m.recording:
		b.WriteString(tui.RecordingStyle.Render("● Recording..."))
		b.WriteString(tui.DimStyle.Render("  press Ctrl+R to stop and send"))
		b.WriteString("\n\n")
	case m.busy != "":
		fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), m.busy)
	}

	if m.notice != "" {
		b.WriteString(tui.WarningStyle.Render(m.notice))
		b.WriteString("\n")
		if m.canRetry {
			b.WriteString(tui.DimStyle.Render("Press Ctrl+T to retry, or record a new answer."))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.inputEnabled() {
		b.WriteString(m.textarea.View())
	} else {
		b.WriteString(tui.DimStyle.Render(m.textarea.View()))
	}
	b.WriteString("\n\n")

	if m.quitPending {
		b.WriteString(tui.WarningStyle.Render("Ending session... press Ctrl+C again to exit immediately"))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	return m.boxed(b.String())
}

func (m SessionModel) statusBar() string {
	parts := []string{tui.TitleStyle.Render(m.title)}

	q := m.lastTurn + 1
	switch {
	case q == 0:
	case m.budget.Timed() || m.budget.Limit() <= 0:
		parts = append(parts, fmt.Sprintf("Question %d", q))
	default:
		parts = append(parts, fmt.Sprintf("Question %d of %d", q, m.budget.Limit()))
	}

	line := strings.Join(parts, tui.DimStyle.Render(" · "))
	if m.budget.Timed() {
		line += "  " + tui.CountdownStyle(m.level).Render(m.countdown)
	}
	return line
}

func (m SessionModel) summaryView() string {
	var b strings.Builder

	if m.err != nil && m.summary == nil {
		b.WriteString(tui.ErrorStyle.Render("The session stopped unexpectedly"))
		b.WriteString("\n\n")
		b.WriteString(m.err.Error())
		b.WriteString("\n\n")
		b.WriteString(tui.DimStyle.Render("Press Enter to exit"))
		return b.String()
	}

	b.WriteString(tui.TitleStyle.Render("Session complete"))
	b.WriteString("\n\n")
	if m.closingMessage != "" {
		b.WriteString(m.closingMessage)
		b.WriteString("\n\n")
	}
	b.WriteString(SummaryText(*m.summary))
	b.WriteString("\n")
	b.WriteString(tui.DimStyle.Render("Press Enter to exit"))
	return b.String()
}

// SummaryText lists the outcome and the turns of a closed session.
func SummaryText(s session.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Ended:     %s\n", describeReason(s.EndReason))
	fmt.Fprintf(&b, "Answered:  %d of %d questions\n", s.Answered(), len(s.Turns))
	if !s.StartTime.IsZero() && !s.EndTime.IsZero() {
		fmt.Fprintf(&b, "Duration:  %s\n", s.EndTime.Sub(s.StartTime).Round(time.Second))
	}
	b.WriteString("\n")

	for _, t := range s.Turns {
		mark := tui.SuccessStyle.Render("✓")
		if !t.Answered() {
			mark = tui.DimStyle.Render("○")
		}
		fmt.Fprintf(&b, "%s %s: %s\n", mark, t.Prompt.Speaker(), t.Prompt.Question)
	}
	return b.String()
}

func describeReason(r session.EndReason) string {
	switch r {
	case session.ReasonTimeExpired:
		return "time expired"
	case session.ReasonSessionEnding, session.ReasonClosingPrompt:
		return "the panel closed the session"
	case session.ReasonAborted:
		return "ended early"
	default:
		return "unknown"
	}
}

func (m SessionModel) boxed(content string) string {
	boxWidth := maxSessionWidth
	if m.width-4 < boxWidth {
		boxWidth = m.width - 4
	}
	return tui.BoxStyle.Width(boxWidth).Render(content)
}

// formatMessages formats the conversation for display in the viewport.
func formatMessages(messages []tui.ChatMessage, width int) string {
	if len(messages) == 0 {
		return tui.DimStyle.Render("Waiting for the panel...")
	}

	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, msg := range messages {
		var line string
		switch msg.Role {
		case tui.RolePanel:
			line = tui.PanelStyle.Render(msg.Speaker+": ") + msg.Content
		case tui.RoleUser:
			line = tui.UserStyle.Render(msg.Speaker+": ") + msg.Content
		case tui.RoleTranscription:
			line = tui.DimStyle.Render(msg.Speaker + ": " + msg.Content)
		default:
			line = tui.DimStyle.Render(msg.Content)
		}
		b.WriteString(wrap.Render(line))

		if i < len(messages)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
