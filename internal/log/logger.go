// Package log provides structured event logging.
// Session events are appended as JSON lines to .panelsim/log.jsonl.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event type constants.
const (
	EventSessionStarted  = "session_started"
	EventPromptShown     = "prompt_shown"
	EventRecordingStart  = "recording_started"
	EventRecordingFailed = "recording_failed"
	EventSubmit          = "submit"
	EventSubmitFailed    = "submit_failed"
	EventTurnRecorded    = "turn_recorded"
	EventTranscription   = "transcription"
	EventThreshold       = "threshold_crossed"
	EventSessionClosing  = "session_closing"
	EventSessionClosed   = "session_closed"
	EventLateEvent       = "late_event_dropped"
	EventPlaybackFailed  = "playback_failed"
)

// LogEvent represents a single structured event written to the log.
type LogEvent struct {
	Time       time.Time              `json:"time"`
	Event      string                 `json:"event"`
	SessionID  string                 `json:"session,omitempty"`
	Turn       int                    `json:"turn,omitempty"`
	Executive  string                 `json:"executive,omitempty"`
	From       string                 `json:"from,omitempty"`
	To         string                 `json:"to,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Modality   string                 `json:"modality,omitempty"`
	Bytes      int                    `json:"bytes,omitempty"`
	Attempt    int                    `json:"attempt,omitempty"`
	Remaining  int                    `json:"remaining,omitempty"`
	Text       string                 `json:"text,omitempty"`
	Error      string                 `json:"error,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Logger writes append-only JSONL events to a log file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// DirName is the per-project state directory.
const DirName = ".panelsim"

// NewLogger creates a Logger that writes to .panelsim/log.jsonl inside dir.
// Creates the .panelsim/ directory if it does not already exist.
// Does not truncate an existing log file.
func NewLogger(dir string) (*Logger, error) {
	stateDir := filepath.Join(dir, DirName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create %s directory: %w", DirName, err)
	}

	return &Logger{
		path: filepath.Join(stateDir, "log.jsonl"),
	}, nil
}

// Path returns the log file location.
func (l *Logger) Path() string {
	return l.path
}

// Append writes event as one JSON line. A zero Time is stamped with the
// current UTC time. Safe for concurrent use.
func (l *Logger) Append(event LogEvent) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(event); err != nil {
		f.Close()
		return fmt.Errorf("write log event: %w", err)
	}
	return f.Close()
}

// maxLineSize bounds a single event line; transcriptions can be long.
const maxLineSize = 1 << 20

// ReadAll returns every event in the log, oldest first. A missing file
// yields no events. A line that does not parse as JSON, which happens when
// the process is killed mid-write, is skipped.
func (l *Logger) ReadAll() ([]LogEvent, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []LogEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	events := []LogEvent{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		var event LogEvent
		if json.Unmarshal(scanner.Bytes(), &event) != nil {
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	return events, nil
}

// ForSession returns the events of one session in the order they were written.
func ForSession(events []LogEvent, sessionID string) []LogEvent {
	var out []LogEvent
	for _, e := range events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}
