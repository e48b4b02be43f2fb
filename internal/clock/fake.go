package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Ticks are handed over synchronously:
// Advance returns only after every due tick has been received or the
// ticker was stopped.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	timers  []*fakeTimer
}

// NewFake returns a Fake clock reading start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTicker registers a ticker that fires every d of fake time.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{
		c:      make(chan time.Time),
		done:   make(chan struct{}),
		period: d,
		next:   f.now.Add(d),
	}
	f.tickers = append(f.tickers, t)
	return t
}

// After returns a channel that receives once d of fake time has passed.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{c: make(chan time.Time, 1), at: f.now.Add(d)}
	if d <= 0 {
		t.c <- f.now
		return t.c
	}
	f.timers = append(f.timers, t)
	return t.c
}

// Set moves the clock to t without firing anything, simulating a host
// that stalled between ticks. Missed ticks are dropped, as with time.Ticker.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
	for _, tk := range f.tickers {
		tk.next = t.Add(tk.period)
	}
}

// Advance moves the clock forward by d, firing due timers and delivering
// each due tick in order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now

	pending := f.timers[:0]
	for _, t := range f.timers {
		if !t.at.After(now) {
			t.c <- now
			continue
		}
		pending = append(pending, t)
	}
	f.timers = pending

	type delivery struct {
		t  *fakeTicker
		at time.Time
	}
	var due []delivery
	for _, t := range f.tickers {
		for !t.next.After(now) {
			due = append(due, delivery{t: t, at: t.next})
			t.next = t.next.Add(t.period)
		}
	}
	f.mu.Unlock()

	for _, d := range due {
		select {
		case d.t.c <- d.at:
		case <-d.t.done:
		}
	}
}

// Tickers returns how many tickers have been created and not stopped.
func (f *Fake) Tickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickers {
		select {
		case <-t.done:
		default:
			n++
		}
	}
	return n
}

type fakeTicker struct {
	c      chan time.Time
	done   chan struct{}
	once   sync.Once
	period time.Duration
	next   time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.once.Do(func() { close(t.done) })
}

type fakeTimer struct {
	c  chan time.Time
	at time.Time
}
