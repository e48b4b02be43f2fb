// Package capture turns one contiguous microphone recording into a single
// encoded audio payload.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
)

// Capture errors. Device errors are recoverable: the user may retry or
// answer by typing instead.
var (
	ErrDeviceDenied      = errors.New("capture device denied")
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrRecordingActive   = errors.New("a recording is already active")
)

// UserMessage returns the text shown to the user for a capture error.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDeviceDenied):
		return "Microphone access denied. Please allow microphone access and try again."
	case errors.Is(err, ErrDeviceUnavailable):
		return "No microphone found. Please connect a microphone and try again."
	case errors.Is(err, ErrRecordingActive):
		return "A recording is already in progress."
	default:
		return fmt.Sprintf("Recording failed: %v", err)
	}
}

// State is the lifecycle state of the capture unit.
type State int

const (
	Idle State = iota
	Armed
	Recording
	Stopping
	Encoded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	case Encoded:
		return "encoded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Format describes the container a device produces.
type Format struct {
	MediaType string
	Extension string
}

// Payload is a finished recording. It is immutable once built.
type Payload struct {
	data      []byte
	format    Format
	fragments int
	duration  time.Duration
}

// NewPayload wraps data as a payload of the given format.
func NewPayload(data []byte, format Format) *Payload {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Payload{data: buf, format: format, fragments: 1}
}

// Len returns the payload size in bytes.
func (p *Payload) Len() int { return len(p.data) }

// Bytes returns a copy of the payload.
func (p *Payload) Bytes() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

// Reader returns a fresh reader over the payload. Each call starts at the
// beginning, so a failed upload can be retried with the same payload.
func (p *Payload) Reader() io.Reader { return bytes.NewReader(p.data) }

// MediaType returns the declared media type.
func (p *Payload) MediaType() string { return p.format.MediaType }

// Filename returns the upload filename, e.g. "response.wav".
func (p *Payload) Filename() string { return "response." + p.format.Extension }

// Fragments returns how many device fragments the payload was built from.
func (p *Payload) Fragments() int { return p.fragments }

// Duration returns the wall time between Begin and End.
func (p *Payload) Duration() time.Duration { return p.duration }
