// Package sequencer drives one interview session from the first prompt to
// the summary.
//
// A single goroutine owns the session. User commands, countdown ticks and
// the completions of background work (device acquisition, uploads, the
// follow-up display delay, closing playback) all arrive as events on that
// goroutine and are handled one at a time. The only path into Closing is
// closeOnce.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/panelsim/panelsim/internal/capture"
	"github.com/panelsim/panelsim/internal/clock"
	"github.com/panelsim/panelsim/internal/countdown"
	"github.com/panelsim/panelsim/internal/gateway"
	"github.com/panelsim/panelsim/internal/log"
	"github.com/panelsim/panelsim/internal/playback"
	"github.com/panelsim/panelsim/internal/session"
)

// ErrSessionAlreadyClosed marks an event that arrived after the session
// started closing. Such events are logged and dropped.
var ErrSessionAlreadyClosed = errors.New("session already closed")

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("sequencer already running")

// Submitter uploads one response and returns the panel's reply.
type Submitter interface {
	Submit(ctx context.Context, prompt session.Prompt, resp gateway.Response) (gateway.TurnResult, error)
}

// Recorder is the microphone capture unit.
type Recorder interface {
	Arm(ctx context.Context) error
	Begin() error
	End(ctx context.Context) (*capture.Payload, error)
	Take() *capture.Payload
	Cancel()
	Active() bool
}

// Countdown is the session wall clock for time budgets.
type Countdown interface {
	Start(minutes int) (<-chan countdown.Event, error)
	Stop()
}

// Journal persists sessions and answered turns.
type Journal interface {
	CreateSession(sess *session.Session) error
	RecordTurn(sessionID string, t session.Turn) error
	FinishSession(id string, reason session.EndReason, endedAt time.Time) error
}

// EventLog receives structured session events.
type EventLog interface {
	Append(event log.LogEvent) error
}

// Config tunes the session flow.
type Config struct {
	// FollowUpDelay is how long the transcription stays on screen before
	// the next prompt. Zero installs the next prompt immediately.
	FollowUpDelay time.Duration
	// ClosingMaxWait bounds closing-message playback.
	ClosingMaxWait time.Duration
	// EchoTranscription shows and logs the server transcription of audio
	// answers.
	EchoTranscription bool
	// BreakerThreshold is the number of consecutive failed audio uploads
	// after which the user is told to type instead.
	BreakerThreshold int
}

// DefaultConfig returns the stock session tuning.
func DefaultConfig() Config {
	return Config{
		FollowUpDelay:     time.Second,
		ClosingMaxWait:    8 * time.Second,
		EchoTranscription: true,
		BreakerThreshold:  3,
	}
}

// Deps are the collaborators of a Sequencer. Gateway and Renderer are
// required, Timer is required for time budgets, the rest are optional.
type Deps struct {
	Gateway  Submitter
	Recorder Recorder
	Timer    Countdown
	Player   playback.Player
	Renderer Renderer
	Journal  Journal
	Log      EventLog
	Clock    clock.Clock
}

type recState int

const (
	recIdle recState = iota
	recArming
	recRecording
	recEncoding
)

// latch is acquired at most once.
type latch struct {
	set atomic.Bool
}

func (l *latch) acquire() bool {
	return l.set.CompareAndSwap(false, true)
}

// warnOut receives operator warnings.
var warnOut io.Writer = os.Stderr

// Sequencer runs a single session. Create it with New, start it with Run
// and feed it user commands from any goroutine.
type Sequencer struct {
	cfg  Config
	deps Deps

	events   chan event
	done     chan struct{}
	doneOnce sync.Once
	postMu   sync.Mutex
	sealed   bool
	started  atomic.Bool
	closed   latch
	snap     atomic.Pointer[session.Session]

	// Owned by the loop goroutine.
	ctx       context.Context
	sess      *session.Session
	ticks     <-chan countdown.Event
	rec       recState
	pending   *gateway.Response
	attempt   int
	next      *session.Prompt
	breaker   *audioBreaker
	remaining int
	level     countdown.Level
	message   string
	stopPlay  context.CancelFunc
	finished  bool
}

// New prepares a sequencer for sess, which carries the company and budget.
func New(sess session.Session, cfg Config, deps Deps) (*Sequencer, error) {
	if deps.Gateway == nil {
		return nil, errors.New("sequencer needs a gateway")
	}
	if deps.Renderer == nil {
		return nil, errors.New("sequencer needs a renderer")
	}
	if err := sess.Budget.Validate(); err != nil {
		return nil, err
	}
	if sess.Budget.Timed() && deps.Timer == nil {
		return nil, errors.New("time budget needs a countdown timer")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Player == nil {
		deps.Player = playback.Nop{}
	}
	if cfg.FollowUpDelay < 0 {
		cfg.FollowUpDelay = 0
	}
	if cfg.ClosingMaxWait <= 0 {
		cfg.ClosingMaxWait = DefaultConfig().ClosingMaxWait
	}

	s := sess.Clone()
	s.Turns = nil
	s.State = session.AwaitingInput
	s.EndReason = session.ReasonNone

	seq := &Sequencer{
		cfg:     cfg,
		deps:    deps,
		events:  make(chan event, 32),
		done:    make(chan struct{}),
		sess:    &s,
		breaker: newAudioBreaker(cfg.BreakerThreshold),
	}
	seq.publish()
	return seq, nil
}

// SubmitText submits a typed answer to the current prompt.
func (s *Sequencer) SubmitText(text string) { s.command(submitText{text: text}) }

// StartRecording acquires the microphone and starts recording an answer.
func (s *Sequencer) StartRecording() { s.command(startRecording{}) }

// StopRecording stops the recording and submits it. It is a no-op unless
// a recording is running.
func (s *Sequencer) StopRecording() { s.command(stopRecording{}) }

// Retry resubmits the answer whose upload failed.
func (s *Sequencer) Retry() { s.command(retrySubmit{}) }

// Quit ends the session early.
func (s *Sequencer) Quit() { s.command(quitSession{}) }

// Snapshot returns a copy of the session as of the last render.
func (s *Sequencer) Snapshot() session.Session {
	return s.snap.Load().Clone()
}

// Done is closed once Run has returned.
func (s *Sequencer) Done() <-chan struct{} { return s.done }

// Run shows first and handles events until the session is Closed. It
// returns the final session. Cancelling ctx aborts the session.
func (s *Sequencer) Run(ctx context.Context, first session.Prompt) (session.Session, error) {
	if !s.started.CompareAndSwap(false, true) {
		return session.Session{}, ErrAlreadyRunning
	}
	defer s.shutdown()

	s.ctx = ctx
	if err := s.begin(first); err != nil {
		return s.sess.Clone(), err
	}

	for !s.finished {
		select {
		case <-ctx.Done():
			s.abort()
			return s.sess.Clone(), ctx.Err()
		case ev, ok := <-s.ticks:
			if !ok {
				s.ticks = nil
				continue
			}
			s.handle(tick{ev: ev})
		case ev := <-s.events:
			s.handle(ev)
		}
	}
	return s.sess.Clone(), nil
}

func (s *Sequencer) begin(first session.Prompt) error {
	if s.sess.ID == "" {
		s.sess.ID = uuid.New().String()
	}
	s.sess.StartTime = s.deps.Clock.Now()
	s.publish()

	if s.deps.Journal != nil {
		if err := s.deps.Journal.CreateSession(s.sess); err != nil {
			s.warnf("could not journal session: %v", err)
		}
	}
	s.logEvent(log.LogEvent{
		Event: log.EventSessionStarted,
		Text:  s.sess.Company,
		Data:  map[string]interface{}{"budget": s.sess.Budget.String()},
	})

	if s.sess.Budget.Timed() {
		ticks, err := s.deps.Timer.Start(s.sess.Budget.Minutes)
		if err != nil {
			return fmt.Errorf("start countdown: %w", err)
		}
		s.ticks = ticks
		s.remaining = s.sess.Budget.Minutes * 60
	}

	if first.IsClosing {
		s.closeOnce(session.ReasonClosingPrompt, &first, "")
		return nil
	}
	s.openTurn(first, "")
	return nil
}

// abort closes the session after ctx was cancelled, skipping playback.
func (s *Sequencer) abort() {
	if s.sess.State == session.Closing {
		s.finish()
		return
	}
	if !s.sess.State.Terminal() {
		s.closeOnce(session.ReasonAborted, nil, "")
	}
	if !s.finished {
		s.finish()
	}
}

func (s *Sequencer) handle(ev event) {
	if s.sess.State.Terminal() {
		s.afterClose(ev)
		return
	}

	switch e := ev.(type) {
	case submitText:
		s.onSubmitText(e.text)
	case startRecording:
		s.onStartRecording()
	case stopRecording:
		s.onStopRecording()
	case retrySubmit:
		s.onRetry()
	case quitSession:
		s.closeOnce(session.ReasonAborted, nil, "")
	case tick:
		s.onTick(e.ev)
	case armed:
		s.onArmed(e.err)
	case recorded:
		s.onRecorded(e.payload, e.err)
	case uploaded:
		s.onUploaded(e)
	case displayElapsed:
		s.onDisplayElapsed(e.turn)
	case closingDone:
		// Playback only runs while Closing.
	}
}

// afterClose handles events that arrive once the session is Closing or
// Closed.
func (s *Sequencer) afterClose(ev event) {
	switch e := ev.(type) {
	case closingDone:
		if s.sess.State != session.Closing {
			return
		}
		if e.timedOut {
			s.logEvent(log.LogEvent{Event: log.EventPlaybackFailed, Error: "closing playback exceeded wait"})
		} else if e.err != nil {
			s.logEvent(log.LogEvent{Event: log.EventPlaybackFailed, Error: e.err.Error()})
		}
		s.finish()
	case tick:
		if e.ev.Expired {
			s.dropLate(ev)
		}
	case armed, recorded:
		if s.deps.Recorder != nil {
			s.deps.Recorder.Cancel()
		}
		s.dropLate(ev)
	default:
		s.dropLate(ev)
	}
}

func (s *Sequencer) onSubmitText(text string) {
	if s.sess.State != session.AwaitingInput {
		return
	}
	if s.rec != recIdle {
		s.notice("Stop the recording before typing an answer.")
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.notice("Please enter a response before submitting.")
		return
	}
	s.submit(gateway.Text(text))
}

func (s *Sequencer) onRetry() {
	if s.sess.State != session.AwaitingInput || s.rec != recIdle {
		return
	}
	if s.pending == nil {
		s.notice("There is no failed answer to retry.")
		return
	}
	s.submit(*s.pending)
}

// submit hands resp to the gateway. The response is kept until the upload
// succeeds so that a retry sends the same bytes.
func (s *Sequencer) submit(resp gateway.Response) {
	s.pending = &resp
	s.attempt++

	t := s.sess.Current()
	ev := log.LogEvent{
		Event:     log.EventSubmit,
		Turn:      t.Index + 1,
		Executive: t.Prompt.Executive,
		Modality:  string(session.ModalityText),
		Attempt:   s.attempt,
	}
	if resp.IsAudio() {
		ev.Modality = string(session.ModalityAudio)
		ev.Bytes = resp.Payload().Len()
	}

	s.transition(session.Submitting, s.promptFrame(FrameInputDisabled))
	s.logEvent(ev)

	attempt, turn, prompt, ctx := s.attempt, t.Index, t.Prompt, s.ctx
	go func() {
		result, err := s.deps.Gateway.Submit(ctx, prompt, resp)
		s.post(uploaded{attempt: attempt, turn: turn, resp: resp, result: result, err: err})
	}()
}

func (s *Sequencer) onUploaded(e uploaded) {
	if s.sess.State != session.Submitting || e.attempt != s.attempt {
		return
	}

	if e.err != nil {
		notice := gateway.UserMessage(e.err)
		if e.resp.IsAudio() && s.breaker.recordFailure() {
			notice += " Audio uploads keep failing; try typing your answer instead."
		}
		s.logEvent(log.LogEvent{
			Event:   log.EventSubmitFailed,
			Turn:    e.turn + 1,
			Attempt: e.attempt,
			Error:   e.err.Error(),
		})
		f := s.promptFrame(FramePrompt)
		f.Notice = notice
		s.transition(session.AwaitingInput, f)
		return
	}

	s.pending = nil
	now := s.deps.Clock.Now()
	t := s.sess.Current()

	resp := &session.Response{Modality: session.ModalityText, Text: e.resp.TextValue()}
	if e.resp.IsAudio() {
		s.breaker.recordSuccess()
		p := e.resp.Payload()
		resp = &session.Response{
			Modality:      session.ModalityAudio,
			MediaType:     p.MediaType(),
			Size:          p.Len(),
			Transcription: e.result.Transcription,
		}
	}
	t.Response = resp
	t.SubmittedAt = now

	if s.deps.Journal != nil {
		if err := s.deps.Journal.RecordTurn(s.sess.ID, *t); err != nil {
			s.warnf("could not journal turn %d: %v", t.Index+1, err)
		}
	}
	s.logEvent(log.LogEvent{
		Event:      log.EventTurnRecorded,
		Turn:       t.Index + 1,
		Executive:  t.Prompt.Executive,
		Modality:   string(resp.Modality),
		Bytes:      resp.Size,
		DurationMs: now.Sub(t.ShownAt).Milliseconds(),
	})

	var transcription string
	if s.cfg.EchoTranscription && e.result.Transcription != "" {
		transcription = e.result.Transcription
		s.logEvent(log.LogEvent{Event: log.EventTranscription, Turn: t.Index + 1, Text: transcription})
	}

	if e.result.Closing() || e.result.NextPrompt == nil {
		reason := session.ReasonClosingPrompt
		if e.result.SessionEnding || e.result.NextPrompt == nil {
			reason = session.ReasonSessionEnding
		}
		s.closeOnce(reason, e.result.NextPrompt, transcription)
		return
	}

	next := *e.result.NextPrompt
	if s.cfg.FollowUpDelay <= 0 {
		s.openTurn(next, transcription)
		return
	}

	s.next = &next
	turn := t.Index
	after := s.deps.Clock.After(s.cfg.FollowUpDelay)

	f := s.promptFrame(FrameInputDisabled)
	f.Transcription = transcription
	s.transition(session.Displaying, f)

	go func() {
		select {
		case <-after:
			s.post(displayElapsed{turn: turn})
		case <-s.done:
		}
	}()
}

func (s *Sequencer) onDisplayElapsed(turn int) {
	if s.sess.State != session.Displaying || s.next == nil {
		return
	}
	if cur := s.sess.Current(); cur == nil || cur.Index != turn {
		return
	}
	next := *s.next
	s.next = nil
	s.openTurn(next, "")
}

// openTurn installs p as a new turn and waits for input.
func (s *Sequencer) openTurn(p session.Prompt, transcription string) {
	t := session.Turn{
		Index:   len(s.sess.Turns),
		Prompt:  p,
		ShownAt: s.deps.Clock.Now(),
	}
	s.sess.Turns = append(s.sess.Turns, t)

	s.logEvent(log.LogEvent{
		Event:     log.EventPromptShown,
		Turn:      t.Index + 1,
		Executive: p.Executive,
		Text:      p.Question,
		Data:      map[string]interface{}{"follow_up": p.IsFollowUp},
	})

	f := s.promptFrame(FramePrompt)
	f.Transcription = transcription
	s.transition(session.AwaitingInput, f)
}

func (s *Sequencer) onStartRecording() {
	if s.sess.State != session.AwaitingInput || s.rec != recIdle {
		return
	}
	if s.deps.Recorder == nil {
		s.notice("Audio answers are not available. Please type your answer.")
		return
	}

	s.rec = recArming
	rec, ctx := s.deps.Recorder, s.ctx
	go func() {
		err := rec.Arm(ctx)
		if err == nil {
			err = rec.Begin()
		}
		if !s.post(armed{err: err}) {
			rec.Cancel()
		}
	}()
}

func (s *Sequencer) onArmed(err error) {
	if s.rec != recArming {
		s.deps.Recorder.Cancel()
		return
	}
	if err != nil {
		s.rec = recIdle
		if errors.Is(err, capture.ErrCancelled) {
			return
		}
		t := s.sess.Current()
		s.logEvent(log.LogEvent{Event: log.EventRecordingFailed, Turn: t.Index + 1, Error: err.Error()})
		s.notice(capture.UserMessage(err))
		return
	}

	s.rec = recRecording
	t := s.sess.Current()
	s.logEvent(log.LogEvent{Event: log.EventRecordingStart, Turn: t.Index + 1, Executive: t.Prompt.Executive})
	s.render(s.redraw())
}

func (s *Sequencer) onStopRecording() {
	if s.rec != recRecording {
		return
	}
	s.rec = recEncoding
	f := s.redraw()
	f.Notice = "Processing your recording..."
	s.render(f)

	rec, ctx := s.deps.Recorder, s.ctx
	go func() {
		p, err := rec.End(ctx)
		if err == nil && p != nil {
			p = rec.Take()
		}
		s.post(recorded{payload: p, err: err})
	}()
}

func (s *Sequencer) onRecorded(p *capture.Payload, err error) {
	if s.rec != recEncoding {
		return
	}
	s.rec = recIdle

	if err != nil {
		t := s.sess.Current()
		s.logEvent(log.LogEvent{Event: log.EventRecordingFailed, Turn: t.Index + 1, Error: err.Error()})
		s.notice(capture.UserMessage(err))
		return
	}
	if p == nil || p.Len() == 0 {
		s.notice("No audio was captured. Please try again.")
		return
	}
	s.submit(gateway.Audio(p))
}

func (s *Sequencer) onTick(ev countdown.Event) {
	s.remaining = ev.Remaining
	s.level = ev.Level

	for _, l := range ev.Crossed {
		s.logEvent(log.LogEvent{Event: log.EventThreshold, To: l.String(), Remaining: ev.Remaining})
	}

	f := Frame{
		Kind:      FrameCountdown,
		Crossed:   ev.Crossed,
		Recording: s.rec == recRecording,
	}
	if t := s.sess.Current(); t != nil {
		f.Prompt = t.Prompt
		f.Turn = t.Index
	}
	f.Before, f.After = s.sess.State, s.sess.State
	s.render(f)

	if ev.Expired {
		s.closeOnce(session.ReasonTimeExpired, nil, "")
	}
}

// closeOnce moves the session to Closing. Only the first caller wins; any
// later attempt is logged as a late event and reports false.
func (s *Sequencer) closeOnce(reason session.EndReason, prompt *session.Prompt, transcription string) bool {
	if !s.closed.acquire() {
		s.logEvent(log.LogEvent{
			Event:  log.EventLateEvent,
			Reason: string(reason),
			From:   s.sess.State.String(),
			Error:  ErrSessionAlreadyClosed.Error(),
		})
		return false
	}

	if s.deps.Timer != nil {
		s.deps.Timer.Stop()
	}
	if s.deps.Recorder != nil && (s.rec != recIdle || s.deps.Recorder.Active()) {
		s.deps.Recorder.Cancel()
	}
	s.rec = recIdle
	s.pending = nil
	s.next = nil

	s.sess.EndReason = reason
	s.message = s.closingMessage(reason, prompt)

	f := Frame{
		Kind:          FrameClosing,
		Message:       s.message,
		EndReason:     reason,
		Transcription: transcription,
		Turn:          len(s.sess.Turns),
	}
	if prompt != nil {
		f.Prompt = *prompt
	}

	speak := prompt != nil && prompt.TTSURL != "" && reason != session.ReasonTimeExpired
	if speak {
		s.playClosing(prompt.TTSURL)
	}

	from := s.sess.State
	s.transition(session.Closing, f)
	s.logEvent(log.LogEvent{
		Event:  log.EventSessionClosing,
		From:   from.String(),
		To:     session.Closing.String(),
		Reason: string(reason),
		Text:   s.message,
	})

	if !speak {
		s.finish()
	}
	return true
}

func (s *Sequencer) closingMessage(reason session.EndReason, prompt *session.Prompt) string {
	switch {
	case reason == session.ReasonTimeExpired:
		return fmt.Sprintf("Time's Up! Your %d-minute session has ended. The panel thanks you for your presentation.",
			s.sess.Budget.Minutes)
	case prompt != nil && strings.TrimSpace(prompt.Question) != "":
		return prompt.Question
	case reason == session.ReasonAborted:
		return "Session ended early. The panel thanks you for your time."
	default:
		return "The session has ended. The panel thanks you for your presentation."
	}
}

// playClosing plays the closing clip in the background. closingDone is
// posted when it finishes or ClosingMaxWait passes, whichever comes first.
func (s *Sequencer) playClosing(ref string) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.stopPlay = cancel

	played := make(chan error, 1)
	go func() { played <- s.deps.Player.Play(ctx, ref) }()

	wait := s.deps.Clock.After(s.cfg.ClosingMaxWait)
	go func() {
		select {
		case err := <-played:
			s.post(closingDone{err: err})
		case <-wait:
			cancel()
			s.post(closingDone{timedOut: true})
		case <-s.done:
			cancel()
		}
	}()
}

// finish moves Closing to Closed and renders the summary.
func (s *Sequencer) finish() {
	if s.finished {
		return
	}
	if s.stopPlay != nil {
		s.stopPlay()
		s.stopPlay = nil
	}

	now := s.deps.Clock.Now()
	s.sess.EndTime = now
	if s.deps.Journal != nil {
		if err := s.deps.Journal.FinishSession(s.sess.ID, s.sess.EndReason, now); err != nil {
			s.warnf("could not journal session end: %v", err)
		}
	}

	from := s.sess.State
	s.sess.State = session.Closed
	summary := s.sess.Clone()

	s.logEvent(log.LogEvent{
		Event:      log.EventSessionClosed,
		From:       from.String(),
		To:         session.Closed.String(),
		Reason:     string(s.sess.EndReason),
		DurationMs: now.Sub(s.sess.StartTime).Milliseconds(),
		Data:       map[string]interface{}{"answered": s.sess.Answered(), "turns": len(s.sess.Turns)},
	})

	s.render(Frame{
		Kind:      FrameSummary,
		Before:    from,
		After:     session.Closed,
		Message:   s.message,
		EndReason: s.sess.EndReason,
		Summary:   &summary,
		Turns:     summary.Turns,
		Turn:      len(summary.Turns),
	})
	s.finished = true
}

// notice redraws the current prompt with a message for the user.
func (s *Sequencer) notice(msg string) {
	f := s.redraw()
	f.Notice = msg
	s.render(f)
}

// redraw is a same-state prompt frame.
func (s *Sequencer) redraw() Frame {
	f := s.promptFrame(FramePrompt)
	f.Before, f.After = s.sess.State, s.sess.State
	return f
}

func (s *Sequencer) promptFrame(kind FrameKind) Frame {
	f := Frame{Kind: kind, Recording: s.rec == recRecording}
	if t := s.sess.Current(); t != nil {
		f.Prompt = t.Prompt
		f.Turn = t.Index
	}
	return f
}

func (s *Sequencer) transition(to session.State, f Frame) {
	f.Before = s.sess.State
	s.sess.State = to
	f.After = to
	s.render(f)
}

func (s *Sequencer) render(f Frame) {
	if s.sess.Budget.Timed() {
		if f.Kind != FrameCountdown || f.Countdown == "" {
			f.Countdown = countdown.Format(s.remaining)
		}
		f.Remaining = s.remaining
		f.Level = s.level
	}
	s.publish()
	s.deps.Renderer.Render(f)
}

func (s *Sequencer) publish() {
	c := s.sess.Clone()
	s.snap.Store(&c)
}

// command posts a user command, or logs it as late once Run has returned.
func (s *Sequencer) command(ev event) {
	if !s.post(ev) {
		s.dropLate(ev)
	}
}

// post delivers ev to the loop. It reports false when the loop is gone.
func (s *Sequencer) post(ev event) bool {
	s.postMu.Lock()
	defer s.postMu.Unlock()
	if s.sealed {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// shutdown stops the loop from accepting events and settles the ones
// still buffered. A recording that finished arming after the close is
// cancelled so the device is released.
func (s *Sequencer) shutdown() {
	s.doneOnce.Do(func() { close(s.done) })

	s.postMu.Lock()
	s.sealed = true
	s.postMu.Unlock()

	for {
		select {
		case ev := <-s.events:
			if _, ok := ev.(armed); ok && s.deps.Recorder != nil {
				s.deps.Recorder.Cancel()
			}
			s.dropLate(ev)
		default:
			return
		}
	}
}

func (s *Sequencer) dropLate(ev event) {
	s.logEvent(log.LogEvent{
		Event:  log.EventLateEvent,
		Reason: ev.name(),
		From:   s.snap.Load().State.String(),
		Error:  ErrSessionAlreadyClosed.Error(),
	})
}

func (s *Sequencer) logEvent(ev log.LogEvent) {
	if s.deps.Log == nil {
		return
	}
	ev.Time = s.deps.Clock.Now()
	if ev.SessionID == "" {
		ev.SessionID = s.snap.Load().ID
	}
	if err := s.deps.Log.Append(ev); err != nil {
		s.warnf("could not write event log: %v", err)
	}
}

func (s *Sequencer) warnf(format string, args ...any) {
	fmt.Fprintf(warnOut, "Warning: "+format+"\n", args...)
}
