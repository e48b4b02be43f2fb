package mockbackend

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/panelsim/panelsim/internal/session"
)

// followUpWords is the answer length below which a panelist presses for
// more detail.
const followUpWords = 12

// respond records an answer and decides what the panel says next. The
// caller holds the state lock.
func (s *Server) respond(sess *panelSession, role, text string, modality session.Modality, size int) turnResponse {
	now := s.now()
	last := sess.last()
	if role == "" && last != nil {
		role = last.Executive
	}
	sess.Answers = append(sess.Answers, answer{Executive: role, Text: text, Modality: modality, Bytes: size, At: now})
	sess.LastSeen = now

	if s.timeSpent(sess, now) {
		return turnResponse{Status: "success", FollowUp: s.closingQuestion(sess), SessionEnding: true}
	}
	if sess.AllowFollowUps && last != nil && !last.FollowUp && modality == session.ModalityText &&
		len(strings.Fields(text)) < followUpWords {
		return turnResponse{Status: "success", FollowUp: s.followUp(sess, last)}
	}
	if !sess.Budget.Timed() && sess.Asked >= sess.Budget.Questions {
		return turnResponse{Status: "success", FollowUp: s.closingQuestion(sess), SessionEnding: true}
	}
	return turnResponse{Status: "success", FollowUp: s.nextQuestion(sess)}
}

func (s *Server) timeSpent(sess *panelSession, now time.Time) bool {
	if !sess.Budget.Timed() {
		return false
	}
	return now.Sub(sess.StartedAt) >= time.Duration(sess.Budget.Minutes)*time.Minute
}

// nextQuestion rotates through the selected executives, each working down
// their own list.
func (s *Server) nextQuestion(sess *panelSession) *promptJSON {
	sess.Asked++
	role := sess.Executives[(sess.Asked-1)%len(sess.Executives)]
	list := s.bank.Questions[role]
	idx := sess.PerRole[role] % len(list)
	sess.PerRole[role]++
	return s.ask(sess, role, expand(list[idx], sess.Company, sess.ReportType), false, false)
}

func (s *Server) followUp(sess *panelSession, last *askedQuestion) *promptJSON {
	text := "Could you expand on that?"
	if n := len(s.bank.FollowUps); n > 0 {
		text = s.bank.FollowUps[len(sess.Questions)%n]
	}
	return s.ask(sess, last.Executive, text, true, false)
}

func (s *Server) closingQuestion(sess *panelSession) *promptJSON {
	role := "CEO"
	if _, ok := s.bank.Executives[role]; !ok {
		role = sess.Executives[0]
	}
	return s.ask(sess, role, expand(s.bank.Closing, sess.Company, sess.ReportType), false, true)
}

func (s *Server) ask(sess *panelSession, role, text string, followUp, closing bool) *promptJSON {
	now := s.now()
	exec := s.bank.Executives[role]
	sess.Questions = append(sess.Questions, askedQuestion{
		Executive: role,
		Name:      exec.Name,
		Question:  text,
		FollowUp:  followUp,
		Closing:   closing,
		At:        now,
	})
	return &promptJSON{
		Executive:  role,
		Name:       exec.Name,
		Title:      exec.Title,
		Question:   text,
		IsClosing:  closing,
		IsFollowUp: followUp,
		Timestamp:  now.Format(time.RFC3339),
		Image:      exec.Image,
	}
}

// closed reports whether the closing prompt has been issued.
func (p *panelSession) closed() bool {
	last := p.last()
	return p.Ended || (last != nil && last.Closing)
}

// transcribe stands in for speech recognition. WAV uploads report their
// length; anything else reports its size.
func transcribe(data []byte) string {
	if len(data) >= 44 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		byteRate := binary.LittleEndian.Uint32(data[28:32])
		if byteRate > 0 {
			secs := float64(len(data)-44) / float64(byteRate)
			return fmt.Sprintf("(Recorded answer, %.1f seconds of audio.)", secs)
		}
	}
	return fmt.Sprintf("(Recorded answer, %d bytes of audio.)", len(data))
}
