// Package report builds the end-of-session summary written to the run
// directory and printed after the summary screen.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/panelsim/panelsim/internal/gateway"
	"github.com/panelsim/panelsim/internal/log"
	"github.com/panelsim/panelsim/internal/session"
)

// Report holds the aggregated statistics of one finished session.
type Report struct {
	SessionID  string
	Company    string
	Topic      string
	Budget     session.Budget
	EndReason  session.EndReason
	Questions  int
	Answered   int
	Audio      int
	Text       int
	Executives []string
	Turns      []session.Turn

	FailedUploads int
	Duration      time.Duration
	Transcript    string // path of the downloaded transcript, if any
}

// GenerateReport combines the local session record, the backend summary
// (which may be nil when the backend could not be reached) and the
// session's log events.
func GenerateReport(sess session.Session, summary *gateway.Summary, events []log.LogEvent) *Report {
	r := &Report{
		SessionID: sess.ID,
		Company:   sess.Company,
		Budget:    sess.Budget,
		EndReason: sess.EndReason,
		Turns:     sess.Turns,
		Questions: len(sess.Turns),
	}

	seen := make(map[string]bool)
	for _, t := range sess.Turns {
		if !seen[t.Prompt.Executive] {
			seen[t.Prompt.Executive] = true
			r.Executives = append(r.Executives, t.Prompt.Executive)
		}
		if !t.Answered() {
			continue
		}
		r.Answered++
		if t.Response.Modality == session.ModalityAudio {
			r.Audio++
		} else {
			r.Text++
		}
	}

	// The backend's counts are authoritative when present.
	if summary != nil {
		if summary.CompanyName != "" {
			r.Company = summary.CompanyName
		}
		r.Topic = summary.PresentationTopic
		if summary.TotalQuestions > 0 {
			r.Questions = summary.TotalQuestions
		}
		if len(summary.ExecutivesInvolved) > 0 {
			r.Executives = summary.ExecutivesInvolved
		}
	}

	events = log.ForSession(events, sess.ID)
	for _, e := range events {
		if e.Event == log.EventSubmitFailed {
			r.FailedUploads++
		}
	}
	r.Duration = computeDuration(events)
	if r.Duration == 0 && !sess.EndTime.IsZero() {
		r.Duration = sess.EndTime.Sub(sess.StartTime)
	}
	return r
}

// FormatReport produces a terminal-friendly, human-readable summary string.
func FormatReport(r *Report) string {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString("  Panel Session Report\n")
	b.WriteString("========================================\n")
	b.WriteString("\n")

	if r.Company != "" {
		fmt.Fprintf(&b, "Company:     %s\n", r.Company)
	}
	if r.Topic != "" {
		fmt.Fprintf(&b, "Topic:       %s\n", r.Topic)
	}
	fmt.Fprintf(&b, "Budget:      %s\n", r.Budget)
	fmt.Fprintf(&b, "Ended:       %s\n", describeReason(r.EndReason))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Questions:   %d\n", r.Questions)
	fmt.Fprintf(&b, "  Answered:  %d\n", r.Answered)
	fmt.Fprintf(&b, "  By voice:  %d\n", r.Audio)
	fmt.Fprintf(&b, "  Typed:     %d\n", r.Text)
	if r.FailedUploads > 0 {
		fmt.Fprintf(&b, "  Retried:   %d failed uploads\n", r.FailedUploads)
	}
	b.WriteString("\n")

	if len(r.Executives) > 0 {
		fmt.Fprintf(&b, "Panel:       %s\n", strings.Join(r.Executives, ", "))
	}
	if r.Duration > 0 {
		fmt.Fprintf(&b, "Duration:    %s\n", formatDuration(r.Duration))
	}
	if r.Transcript != "" {
		fmt.Fprintf(&b, "Transcript:  %s\n", r.Transcript)
	}

	if len(r.Turns) > 0 {
		b.WriteString("\nConversation:\n")
		for _, t := range r.Turns {
			tag := ""
			if t.Prompt.IsFollowUp {
				tag = " (follow-up)"
			}
			fmt.Fprintf(&b, "  %d. %s%s: %s\n", t.Index+1, t.Prompt.Speaker(), tag, t.Prompt.Question)
			switch {
			case !t.Answered():
				b.WriteString("     (no answer)\n")
			case t.Response.Modality == session.ModalityAudio && t.Response.Content() == "":
				fmt.Fprintf(&b, "     [voice answer, %d bytes]\n", t.Response.Size)
			case t.Response.Modality == session.ModalityAudio:
				fmt.Fprintf(&b, "     [voice] %s\n", t.Response.Content())
			default:
				fmt.Fprintf(&b, "     %s\n", t.Response.Content())
			}
		}
	}

	b.WriteString("========================================\n")

	return b.String()
}

// WriteReport writes the formatted report to {runDir}/report.md.
// Creates the run directory if it does not exist.
func WriteReport(runDir string, report *Report) error {
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	content := FormatReport(report)
	path := filepath.Join(runDir, "report.md")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}

	return nil
}

func describeReason(r session.EndReason) string {
	switch r {
	case session.ReasonTimeExpired:
		return "time expired"
	case session.ReasonSessionEnding, session.ReasonClosingPrompt:
		return "panel closed the session"
	case session.ReasonAborted:
		return "ended early"
	default:
		return "unknown"
	}
}

// computeDuration measures from session_started to session_closed, falling
// back to the last event's timestamp.
func computeDuration(events []log.LogEvent) time.Duration {
	var start, end time.Time
	for _, e := range events {
		if e.Event == log.EventSessionStarted && start.IsZero() {
			start = e.Time
		}
		if !e.Time.IsZero() {
			end = e.Time
		}
		if e.Event == log.EventSessionClosed {
			end = e.Time
		}
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

// formatDuration produces a human-readable duration string such as "5m 32s"
// or "1h 12m 5s". Sub-second durations are shown as "< 1s".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
