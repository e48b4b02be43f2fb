// Package mockbackend is a stand-in for the panel backend. It replays an
// embedded question bank, honours question and time limits, asks short
// follow-ups and serves a small transcript, which is enough to exercise
// the whole client without the real service.
package mockbackend

import (
	"sync"
	"time"

	"github.com/panelsim/panelsim/internal/session"
)

// askedQuestion is one question put to the presenter.
type askedQuestion struct {
	Executive string
	Name      string
	Question  string
	FollowUp  bool
	Closing   bool
	At        time.Time
}

// answer is one presenter response.
type answer struct {
	Executive string
	Text      string
	Modality  session.Modality
	Bytes     int
	At        time.Time
}

// panelSession is the backend state of one interview, keyed by cookie.
type panelSession struct {
	ID             string
	Company        string
	Industry       string
	ReportType     string
	ReportBytes    int
	Budget         session.Budget
	Executives     []string
	AllowFollowUps bool
	WebResearch    bool

	Asked     int
	PerRole   map[string]int
	Questions []askedQuestion
	Answers   []answer
	StartedAt time.Time
	LastSeen  time.Time
	Ended     bool
}

func (p *panelSession) last() *askedQuestion {
	if len(p.Questions) == 0 {
		return nil
	}
	return &p.Questions[len(p.Questions)-1]
}

func (p *panelSession) counts() (audio, text int) {
	for _, a := range p.Answers {
		if a.Modality == session.ModalityAudio {
			audio++
		} else {
			text++
		}
	}
	return audio, text
}

// State is the set of live sessions.
type State struct {
	mu       sync.RWMutex
	Sessions map[string]*panelSession
}

// NewState returns an empty State.
func NewState() *State {
	return &State{Sessions: make(map[string]*panelSession)}
}

// promptJSON mirrors the backend's question payload.
type promptJSON struct {
	Executive  string `json:"executive"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	Question   string `json:"question"`
	IsClosing  bool   `json:"is_closing,omitempty"`
	IsFollowUp bool   `json:"is_followup,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	TTSURL     string `json:"tts_url,omitempty"`
	Image      string `json:"image,omitempty"`
}

type setupResponse struct {
	Status        string      `json:"status"`
	FirstQuestion *promptJSON `json:"first_question,omitempty"`
	Error         string      `json:"error,omitempty"`
}

type textRequest struct {
	Response      string `json:"response"`
	ExecutiveRole string `json:"executive_role"`
}

type turnResponse struct {
	Status        string      `json:"status"`
	Transcription string      `json:"transcription,omitempty"`
	FollowUp      *promptJSON `json:"follow_up,omitempty"`
	SessionEnding bool        `json:"session_ending"`
	Error         string      `json:"error,omitempty"`
}

type summaryJSON struct {
	CompanyName        string   `json:"company_name"`
	PresentationTopic  string   `json:"presentation_topic"`
	SessionType        string   `json:"session_type"`
	SessionLimit       int      `json:"session_limit"`
	TotalQuestions     int      `json:"total_questions"`
	TotalResponses     int      `json:"total_responses"`
	AudioResponses     int      `json:"audio_responses"`
	TextResponses      int      `json:"text_responses"`
	ExecutivesInvolved []string `json:"executives_involved"`
	SessionDuration    string   `json:"session_duration,omitempty"`
}

type endResponse struct {
	Status  string       `json:"status"`
	Summary *summaryJSON `json:"summary,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}
