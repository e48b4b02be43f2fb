// Package testutil provides test helper utilities for panelsim tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/panelsim/panelsim/internal/session"
)

// TempProject creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// ConfiguredProject returns file contents for a project with a config file
// that points at backendURL and a .env that turns transcription echo off.
func ConfiguredProject(backendURL string) map[string]string {
	return map[string]string{
		".panelsim/config.yaml": "version: 1\n" +
			"backend:\n  url: " + backendURL + "\n  timeout: 5\n" +
			"session:\n  follow_up_delay: 0\n  echo_transcription: true\n" +
			"setup:\n  executives: [CEO, CFO]\n",
		".env":           "PANELSIM_ECHO_TRANSCRIPTION=false\n",
		"report/q3.txt":  SampleReport,
	}
}

// SampleReport is a short report body for setup requests.
const SampleReport = `Acme Robotics Q3 Business Review

Revenue grew 42% year over year to $18.4M, driven by warehouse automation
contracts in Europe. Gross margin improved to 61%. We plan to open a second
factory in 2027 and expand the field service team.
`

// CEOPrompt is a first question from the chief executive.
func CEOPrompt() session.Prompt {
	return session.Prompt{
		Executive: "CEO",
		Name:      "Sarah Chen",
		Title:     "Chief Executive Officer",
		Question:  "What is the single biggest risk to the growth plan in this report?",
	}
}

// FollowUpPrompt is a follow-up question from the finance chief.
func FollowUpPrompt() session.Prompt {
	return session.Prompt{
		Executive:  "CFO",
		Name:       "Michael Rodriguez",
		Title:      "Chief Financial Officer",
		Question:   "Can you be more specific about how the second factory will be funded?",
		IsFollowUp: true,
	}
}

// ClosingPrompt is the panel's closing statement.
func ClosingPrompt() session.Prompt {
	return session.Prompt{
		Executive: "CEO",
		Name:      "Sarah Chen",
		Title:     "Chief Executive Officer",
		Question:  "Thank you for your presentation. That concludes our session.",
		IsClosing: true,
		TTSURL:    "/audio/closing.mp3",
	}
}

// ClosedSession returns a finished session with one typed and one spoken
// answer, started at start.
func ClosedSession(start time.Time) session.Session {
	return session.Session{
		ID:        "9b2f6a52-3d1e-4c55-9a53-2f7c8de1c0a1",
		Company:   "Acme Robotics",
		Budget:    session.QuestionBudget(2),
		StartTime: start,
		EndTime:   start.Add(3*time.Minute + 12*time.Second),
		State:     session.Closed,
		EndReason: session.ReasonSessionEnding,
		Turns: []session.Turn{
			{
				Index:       0,
				Prompt:      CEOPrompt(),
				Response:    &session.Response{Modality: session.ModalityText, Text: "Supply chain concentration in one region."},
				ShownAt:     start,
				SubmittedAt: start.Add(40 * time.Second),
			},
			{
				Index:  1,
				Prompt: FollowUpPrompt(),
				Response: &session.Response{
					Modality:      session.ModalityAudio,
					MediaType:     "audio/wav",
					Size:          64044,
					Transcription: "A mix of retained earnings and a credit line.",
				},
				ShownAt:     start.Add(41 * time.Second),
				SubmittedAt: start.Add(2 * time.Minute),
			},
		},
	}
}

// PCMFragments returns n fragments of size bytes each, every byte of
// fragment i set to i, so concatenation order is checkable.
func PCMFragments(n, size int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		b := make([]byte, size)
		for j := range b {
			b[j] = byte(i)
		}
		out[i] = b
	}
	return out
}
