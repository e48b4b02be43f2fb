package sequencer

import (
	"github.com/panelsim/panelsim/internal/capture"
	"github.com/panelsim/panelsim/internal/countdown"
	"github.com/panelsim/panelsim/internal/gateway"
)

// event is anything the loop handles: user commands and the completions
// posted back by background work.
type event interface {
	name() string
}

type submitText struct{ text string }
type startRecording struct{}
type stopRecording struct{}
type retrySubmit struct{}
type quitSession struct{}

type tick struct{ ev countdown.Event }

type armed struct{ err error }

type recorded struct {
	payload *capture.Payload
	err     error
}

type uploaded struct {
	attempt int
	turn    int
	resp    gateway.Response
	result  gateway.TurnResult
	err     error
}

type displayElapsed struct{ turn int }

type closingDone struct {
	err      error
	timedOut bool
}

func (submitText) name() string     { return "submit_text" }
func (startRecording) name() string { return "start_recording" }
func (stopRecording) name() string  { return "stop_recording" }
func (retrySubmit) name() string    { return "retry" }
func (quitSession) name() string    { return "quit" }
func (tick) name() string           { return "tick" }
func (armed) name() string          { return "recording_armed" }
func (recorded) name() string       { return "recording_encoded" }
func (uploaded) name() string       { return "upload_result" }
func (displayElapsed) name() string { return "display_elapsed" }
func (closingDone) name() string    { return "closing_done" }
