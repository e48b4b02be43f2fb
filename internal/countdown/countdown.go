// Package countdown implements the session wall-clock budget.
//
// A Timer owns a single deadline and emits one Event per second until the
// deadline passes. Remaining time is always derived from deadline - now, so
// a stalled consumer never causes drift or underflow.
package countdown

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panelsim/panelsim/internal/clock"
)

// ErrRunning is returned by Start when a countdown is already active.
var ErrRunning = errors.New("countdown already running")

// Level is the styling class of the remaining time.
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelDanger
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelDanger:
		return "danger"
	default:
		return "normal"
	}
}

// Thresholds are the remaining-time marks at which the level escalates.
type Thresholds struct {
	Warning time.Duration
	Danger  time.Duration
}

// DefaultThresholds returns the 60s warning and 30s danger marks.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 60 * time.Second, Danger: 30 * time.Second}
}

// LevelFor maps a remaining number of seconds onto a level.
func (th Thresholds) LevelFor(remaining int) Level {
	r := time.Duration(remaining) * time.Second
	switch {
	case r <= th.Danger:
		return LevelDanger
	case r <= th.Warning:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// Event is one tick of a running countdown.
type Event struct {
	Remaining int     // whole seconds, never negative
	Level     Level   // level after this tick
	Crossed   []Level // thresholds crossed on this tick, in escalation order
	Expired   bool    // set on exactly one event, the last one
}

// Format renders seconds as MM:SS.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Timer is a restartable countdown. The zero value is not usable; call New.
type Timer struct {
	clock      clock.Clock
	thresholds Thresholds

	mu  sync.Mutex
	cur *run
}

type run struct {
	deadline time.Time
	level    Level
	expired  bool
	events   chan Event
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Timer reading time from c.
func New(c clock.Clock, th Thresholds) *Timer {
	return &Timer{clock: c, thresholds: th}
}

// Start arms a deadline minutes from now and returns the tick stream for
// this run. The channel is closed after the expired event or after Stop.
func (t *Timer) Start(minutes int) (<-chan Event, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("countdown minutes must be positive, got %d", minutes)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cur != nil && !t.cur.stopped() {
		return nil, ErrRunning
	}

	r := &run{
		deadline: t.clock.Now().Add(time.Duration(minutes) * time.Minute),
		events:   make(chan Event, 1),
		stop:     make(chan struct{}),
	}
	t.cur = r

	ticker := t.clock.NewTicker(time.Second)
	go t.loop(r, ticker)

	return r.events, nil
}

// Stop cancels the current run. Calling it again, or before Start, is a no-op.
func (t *Timer) Stop() {
	t.mu.Lock()
	r := t.cur
	t.mu.Unlock()

	if r != nil {
		r.halt()
	}
}

// Remaining returns the whole seconds left on the current run, or 0 when
// no run is active.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	r := t.cur
	t.mu.Unlock()

	if r == nil || r.stopped() {
		return 0
	}
	return remainingSeconds(r.deadline.Sub(t.clock.Now()))
}

// Deadline returns the deadline of the current run.
func (t *Timer) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == nil {
		return time.Time{}
	}
	return t.cur.deadline
}

// Thresholds returns the level marks the timer was built with.
func (t *Timer) Thresholds() Thresholds {
	return t.thresholds
}

func (t *Timer) loop(r *run, ticker clock.Ticker) {
	defer close(r.events)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C():
			ev := r.step(now, t.thresholds)
			select {
			case r.events <- ev:
			case <-r.stop:
				return
			}
			if ev.Expired {
				r.halt()
				return
			}
		}
	}
}

// step computes the event for a tick observed at now.
func (r *run) step(now time.Time, th Thresholds) Event {
	left := r.deadline.Sub(now)
	remaining := remainingSeconds(left)

	ev := Event{Remaining: remaining}

	target := th.LevelFor(remaining)
	for l := r.level + 1; l <= target; l++ {
		ev.Crossed = append(ev.Crossed, l)
	}
	if target > r.level {
		r.level = target
	}
	ev.Level = r.level

	if left <= 0 && !r.expired {
		r.expired = true
		ev.Expired = true
	}
	return ev
}

func (r *run) halt() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *run) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

func remainingSeconds(left time.Duration) int {
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}
