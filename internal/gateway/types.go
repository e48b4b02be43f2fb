package gateway

import (
	"strings"

	"github.com/panelsim/panelsim/internal/capture"
	"github.com/panelsim/panelsim/internal/session"
)

// promptPayload is the backend's wire form of a panelist question.
type promptPayload struct {
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

func (p promptPayload) valid() bool {
	return strings.TrimSpace(p.Executive) != "" && strings.TrimSpace(p.Question) != ""
}

func (p promptPayload) prompt() session.Prompt {
	return session.Prompt{
		Executive:  p.Executive,
		Name:       p.Name,
		Title:      p.Title,
		Question:   p.Question,
		IsClosing:  p.IsClosing,
		IsFollowUp: p.IsFollowUp,
		Timestamp:  p.Timestamp,
		TTSURL:     p.TTSURL,
		Image:      p.Image,
	}
}

// turnReply is the shape shared by the text and audio response endpoints.
type turnReply struct {
	Status        string         `json:"status"`
	Transcription string         `json:"transcription,omitempty"`
	FollowUp      *promptPayload `json:"follow_up,omitempty"`
	SessionEnding bool           `json:"session_ending,omitempty"`
	Error         string         `json:"error,omitempty"`
}

type setupReply struct {
	Status        string         `json:"status"`
	FirstQuestion *promptPayload `json:"first_question,omitempty"`
	Error         string         `json:"error,omitempty"`
}

type endReply struct {
	Status  string   `json:"status"`
	Summary *Summary `json:"summary,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type healthReply struct {
	Status      string `json:"status"`
	AIAvailable bool   `json:"ai_available"`
}

// Response is a user answer ready for upload: either text or an encoded
// recording.
type Response struct {
	text  string
	audio *capture.Payload
}

// Text wraps a typed answer.
func Text(s string) Response { return Response{text: s} }

// Audio wraps an encoded recording.
func Audio(p *capture.Payload) Response { return Response{audio: p} }

// IsAudio reports whether the response is a recording.
func (r Response) IsAudio() bool { return r.audio != nil }

// TextValue returns the typed answer.
func (r Response) TextValue() string { return r.text }

// Payload returns the recording, or nil for text.
func (r Response) Payload() *capture.Payload { return r.audio }

// TurnResult is the normalised reply to a submitted response.
type TurnResult struct {
	Transcription string
	NextPrompt    *session.Prompt
	SessionEnding bool
}

// Closing reports whether the result ends the session.
func (r TurnResult) Closing() bool {
	return r.SessionEnding || (r.NextPrompt != nil && r.NextPrompt.IsClosing)
}

// SetupRequest configures a new session on the backend.
type SetupRequest struct {
	Budget            session.Budget
	ReportName        string
	Report            []byte
	CompanyName       string
	Industry          string
	ReportType        string
	Executives        []string
	AllowFollowUps    bool
	EnableWebResearch bool
}

// Summary is the backend's end-of-session report.
type Summary struct {
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
