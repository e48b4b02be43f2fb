// Package session holds the interview session model and its SQLite journal.
package session

import (
	"errors"
	"fmt"
	"time"
)

// BudgetKind names the condition that ends a session.
type BudgetKind string

const (
	BudgetQuestions BudgetKind = "questions"
	BudgetDuration  BudgetKind = "time"
)

// Budget is the termination condition of a session: a question count or a
// wall-clock duration in minutes.
type Budget struct {
	Kind      BudgetKind
	Questions int
	Minutes   int
}

// QuestionBudget returns a budget that ends after n answered questions.
func QuestionBudget(n int) Budget {
	return Budget{Kind: BudgetQuestions, Questions: n}
}

// DurationBudget returns a budget that ends after the given number of minutes.
func DurationBudget(minutes int) Budget {
	return Budget{Kind: BudgetDuration, Minutes: minutes}
}

// Timed reports whether the budget runs a countdown.
func (b Budget) Timed() bool {
	return b.Kind == BudgetDuration
}

// Limit returns the numeric limit for whichever kind is set.
func (b Budget) Limit() int {
	if b.Timed() {
		return b.Minutes
	}
	return b.Questions
}

// Validate checks that exactly the field matching Kind is populated.
func (b Budget) Validate() error {
	switch b.Kind {
	case BudgetQuestions:
		if b.Questions <= 0 {
			return fmt.Errorf("question budget must be positive, got %d", b.Questions)
		}
		if b.Minutes != 0 {
			return errors.New("question budget must not carry minutes")
		}
	case BudgetDuration:
		if b.Minutes <= 0 {
			return fmt.Errorf("duration budget must be positive, got %d", b.Minutes)
		}
		if b.Questions != 0 {
			return errors.New("duration budget must not carry a question count")
		}
	default:
		return fmt.Errorf("unknown budget kind %q", b.Kind)
	}
	return nil
}

// String renders the budget for status lines, e.g. "5 questions" or "10 min".
func (b Budget) String() string {
	if b.Timed() {
		return fmt.Sprintf("%d min", b.Minutes)
	}
	return fmt.Sprintf("%d questions", b.Questions)
}

// State is the lifecycle state of a session.
type State int

const (
	AwaitingInput State = iota
	Submitting
	Displaying
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Submitting:
		return "submitting"
	case Displaying:
		return "displaying"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the session is closing or closed.
func (s State) Terminal() bool {
	return s == Closing || s == Closed
}

// EndReason records which source terminated the session.
type EndReason string

const (
	ReasonNone          EndReason = ""
	ReasonTimeExpired   EndReason = "time_expired"
	ReasonSessionEnding EndReason = "session_ending"
	ReasonClosingPrompt EndReason = "closing_prompt"
	ReasonAborted       EndReason = "aborted"
)

// Prompt is a question posed by one panelist.
type Prompt struct {
	Executive  string
	Name       string
	Title      string
	Question   string
	IsClosing  bool
	IsFollowUp bool
	Timestamp  string
	TTSURL     string
	Image      string
}

// Speaker formats the panelist as "Name, Title" or whichever part is known.
func (p Prompt) Speaker() string {
	switch {
	case p.Name != "" && p.Title != "":
		return p.Name + ", " + p.Title
	case p.Name != "":
		return p.Name
	case p.Title != "":
		return p.Title
	default:
		return p.Executive
	}
}

// Modality is the input channel a response was given through.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
)

// Response is the user's answer to one prompt. Audio responses carry a
// reference to the uploaded payload and, once known, its transcription.
type Response struct {
	Modality      Modality
	Text          string
	MediaType     string
	Size          int
	Transcription string
}

// Content returns the text of the response, preferring the transcription
// for audio answers.
func (r Response) Content() string {
	if r.Modality == ModalityAudio {
		return r.Transcription
	}
	return r.Text
}

// Turn is one prompt-response exchange.
type Turn struct {
	Index       int
	Prompt      Prompt
	Response    *Response
	ShownAt     time.Time
	SubmittedAt time.Time
}

// Answered reports whether a response has been recorded on the turn.
func (t Turn) Answered() bool {
	return t.Response != nil
}

// Session is one interview from setup to closing.
type Session struct {
	ID        string
	Company   string
	Budget    Budget
	StartTime time.Time
	EndTime   time.Time
	State     State
	EndReason EndReason
	Turns     []Turn
}

// Answered returns the number of turns that carry a response.
func (s *Session) Answered() int {
	n := 0
	for _, t := range s.Turns {
		if t.Answered() {
			n++
		}
	}
	return n
}

// Current returns the most recent turn, or nil when none has been opened.
func (s *Session) Current() *Turn {
	if len(s.Turns) == 0 {
		return nil
	}
	return &s.Turns[len(s.Turns)-1]
}

// Clone returns a deep copy that is safe to hand to other goroutines.
func (s *Session) Clone() Session {
	c := *s
	c.Turns = make([]Turn, len(s.Turns))
	for i, t := range s.Turns {
		c.Turns[i] = t
		if t.Response != nil {
			r := *t.Response
			c.Turns[i].Response = &r
		}
	}
	return c
}

// Summary is a listing row for a journaled session.
type Summary struct {
	ID        string
	Company   string
	Budget    Budget
	EndReason EndReason
	Turns     int
	Audio     int
	Text      int
	StartedAt time.Time
	EndedAt   time.Time
}
