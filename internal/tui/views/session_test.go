package views

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelsim/panelsim/internal/countdown"
	"github.com/panelsim/panelsim/internal/sequencer"
	"github.com/panelsim/panelsim/internal/session"
	"github.com/panelsim/panelsim/internal/tui"
)

type fakeControls struct {
	texts   []string
	starts  int
	stops   int
	retries int
	quits   int
}

func (c *fakeControls) SubmitText(text string) { c.texts = append(c.texts, text) }
func (c *fakeControls) StartRecording()        { c.starts++ }
func (c *fakeControls) StopRecording()         { c.stops++ }
func (c *fakeControls) Retry()                 { c.retries++ }
func (c *fakeControls) Quit()                  { c.quits++ }

var ceo = session.Prompt{Executive: "CEO", Name: "Sarah Chen", Title: "CEO", Question: "What is your growth plan?"}

func newModel(t *testing.T, budget session.Budget) (SessionModel, *fakeControls) {
	t.Helper()
	c := &fakeControls{}
	return NewSessionModel(c, "Panel: Acme", budget, 100, 40), c
}

func update(t *testing.T, m SessionModel, msg tea.Msg) (SessionModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	sm, ok := next.(SessionModel)
	require.True(t, ok)
	return sm, cmd
}

func frame(f sequencer.Frame) tui.FrameMsg { return tui.FrameMsg{Frame: f} }

func promptFrame(turn int, p session.Prompt) tui.FrameMsg {
	return frame(sequencer.Frame{Kind: sequencer.FramePrompt, After: session.AwaitingInput, Prompt: p, Turn: turn})
}

func typeText(t *testing.T, m SessionModel, s string) SessionModel {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func TestSessionModel_PromptShowsSpeakerAndQuestion(t *testing.T) {
	m, _ := newModel(t, session.QuestionBudget(5))
	m, _ = update(t, m, promptFrame(0, ceo))

	view := m.View()
	assert.Contains(t, view, "Sarah Chen, CEO")
	assert.Contains(t, view, "What is your growth plan?")
	assert.Contains(t, view, "Question 1 of 5")
	assert.True(t, m.inputEnabled())
}

func TestSessionModel_EnterSubmitsTrimmedText(t *testing.T) {
	m, c := newModel(t, session.QuestionBudget(3))
	m, _ = update(t, m, promptFrame(0, ceo))

	m = typeText(t, m, "  We will expand into Europe  ")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, []string{"We will expand into Europe"}, c.texts)
	assert.Empty(t, m.textarea.Value())
	assert.Contains(t, m.View(), "We will expand into Europe")
}

func TestSessionModel_EmptySubmitStillReachesSequencer(t *testing.T) {
	m, c := newModel(t, session.QuestionBudget(3))
	m, _ = update(t, m, promptFrame(0, ceo))

	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, []string{""}, c.texts)
}

func TestSessionModel_InputIgnoredWhileSubmitting(t *testing.T) {
	m, c := newModel(t, session.QuestionBudget(3))
	m, _ = update(t, m, promptFrame(0, ceo))
	m, cmd := update(t, m, frame(sequencer.Frame{
		Kind: sequencer.FrameInputDisabled, Before: session.AwaitingInput, After: session.Submitting, Prompt: ceo,
	}))
	assert.NotNil(t, cmd, "spinner should start")

	m = typeText(t, m, "late")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})

	assert.Empty(t, c.texts)
	assert.Zero(t, c.starts)
	assert.Contains(t, m.View(), "Submitting your answer...")
}

func TestSessionModel_RecordToggle(t *testing.T) {
	m, c := newModel(t, session.QuestionBudget(3))
	m, _ = update(t, m, promptFrame(0, ceo))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, 1, c.starts)

	// The sequencer confirms the recording with a same-state redraw.
	m, _ = update(t, m, frame(sequencer.Frame{
		Kind: sequencer.FramePrompt, Before: session.AwaitingInput, After: session.AwaitingInput,
		Prompt: ceo, Recording: true,
	}))
	assert.Contains(t, m.View(), "Recording...")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, 1, c.stops)

	m, _ = update(t, m, frame(sequencer.Frame{
		Kind: sequencer.FrameInputDisabled, Before: session.AwaitingInput, After: session.Submitting, Prompt: ceo,
	}))
	assert.Contains(t, m.View(), "(voice answer)")
}

func TestSessionModel_FailedUploadOffersRetry(t *testing.T) {
	m, c := newModel(t, session.QuestionBudget(3))
	m, _ = update(t, m, promptFrame(0, ceo))

	// Retry does nothing without a failed upload.
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Zero(t, c.retries)

	m, _ = update(t, m, frame(sequencer.Frame{
		Kind: sequencer.FramePrompt, Before: session.Submitting, After: session.AwaitingInput,
		Prompt: ceo, Notice: "Could not reach the panel.",
	}))
	view := m.View()
	assert.Contains(t, view, "Could not reach the panel.")
	assert.Contains(t, view, "Ctrl+T to retry")

	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, 1, c.retries)
}

func TestSessionModel_TranscriptionAndFollowUp(t *testing.T) {
	m, _ := newModel(t, session.QuestionBudget(3))
	m, _ = update(t, m, promptFrame(0, ceo))
	m, _ = update(t, m, frame(sequencer.Frame{
		Kind: sequencer.FrameInputDisabled, Before: session.Submitting, After: session.Displaying,
		Prompt: ceo, Transcription: "we plan to grow",
	}))

	cfo := session.Prompt{Executive: "CFO", Name: "Michael Rodriguez", Title: "CFO", Question: "How will you fund it?", IsFollowUp: true}
	m, _ = update(t, m, promptFrame(1, cfo))

	view := m.View()
	assert.Contains(t, view, "Transcribed: we plan to grow")
	assert.Contains(t, view, "How will you fund it?")
	assert.Contains(t, view, "Question 2 of 3")
}

func TestSessionModel_CountdownLevels(t *testing.T) {
	m, _ := newModel(t, session.DurationBudget(2))
	assert.Contains(t, m.View(), "02:00")

	m, _ = update(t, m, promptFrame(0, ceo))
	m, _ = update(t, m, frame(sequencer.Frame{
		Kind: sequencer.FrameCountdown, Before: session.AwaitingInput, After: session.AwaitingInput,
		Countdown: "00:59", Remaining: 59, Level: countdown.LevelWarning,
		Crossed: []countdown.Level{countdown.LevelWarning},
	}))

	assert.Equal(t, countdown.LevelWarning, m.level)
	view := m.View()
	assert.Contains(t, view, "00:59")
	assert.Contains(t, view, "Time is running low")
	assert.True(t, m.inputEnabled(), "a tick does not change the input state")
}

func TestSessionModel_ClosingThenSummary(t *testing.T) {
	m, _ := newModel(t, session.DurationBudget(1))
	m, _ = update(t, m, promptFrame(0, ceo))

	msg := "Time's Up! Your 1-minute session has ended. The panel thanks you for your presentation."
	m, _ = update(t, m, frame(sequencer.Frame{
		Kind: sequencer.FrameClosing, Before: session.AwaitingInput, After: session.Closing,
		Message: msg, EndReason: session.ReasonTimeExpired,
	}))
	assert.False(t, m.inputEnabled())
	assert.Contains(t, m.View(), "Closing the session...")

	sum := session.Session{
		State: session.Closed, EndReason: session.ReasonTimeExpired,
		Turns: []session.Turn{{Prompt: ceo}},
	}
	m, _ = update(t, m, frame(sequencer.Frame{
		Kind: sequencer.FrameSummary, Before: session.Closing, After: session.Closed,
		Message: msg, EndReason: session.ReasonTimeExpired, Summary: &sum, Turns: sum.Turns,
	}))

	view := m.View()
	assert.Contains(t, view, "Session complete")
	assert.Contains(t, view, "time expired")
	assert.Contains(t, view, "Answered:  0 of 1")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSessionModel_CtrlCEndsThenExits(t *testing.T) {
	m, c := newModel(t, session.QuestionBudget(3))
	m, _ = update(t, m, promptFrame(0, ceo))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, 1, c.quits)
	assert.NotNil(t, cmd, "reset timer")
	assert.Contains(t, m.View(), "press Ctrl+C again")

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, 1, c.quits)
}

func TestSessionModel_QuitReset(t *testing.T) {
	m, c := newModel(t, session.QuestionBudget(3))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	m, _ = update(t, m, tui.QuitResetMsg{})
	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, 2, c.quits)
}

func TestSessionModel_SessionEndedWithError(t *testing.T) {
	m, _ := newModel(t, session.QuestionBudget(3))
	m, _ = update(t, m, tui.SessionEndedMsg{Err: errors.New("backend went away")})

	assert.Contains(t, m.View(), "backend went away")
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
