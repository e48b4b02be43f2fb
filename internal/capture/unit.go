package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panelsim/panelsim/internal/invariant"
)

// ErrCancelled is returned by End when the recording was cancelled while
// the device was stopping.
var ErrCancelled = errors.New("recording cancelled")

// Unit owns at most one recording session at a time.
type Unit struct {
	device Device
	now    func() time.Time

	mu     sync.Mutex
	state  State
	busy   bool // Open in flight
	abort  bool // Cancel arrived while Open was in flight
	rec    *recording
	result *Payload
}

// recording is the per-attempt device session.
type recording struct {
	stream    Stream
	startedAt time.Time
	fragments [][]byte
	collected chan struct{}
}

// NewUnit creates a capture unit over device.
func NewUnit(device Device) *Unit {
	return &Unit{device: device, now: time.Now}
}

// State returns the current lifecycle state.
func (u *Unit) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Active reports whether a recording session exists, including one that
// is still acquiring the device.
func (u *Unit) Active() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.busy || u.state != Idle
}

// Arm acquires the capture device. On failure the unit stays Idle and the
// error wraps ErrDeviceDenied or ErrDeviceUnavailable.
func (u *Unit) Arm(ctx context.Context) error {
	u.mu.Lock()
	if !invariant.Check(u.state == Idle && !u.busy, "capture armed while %s", u.state) {
		u.mu.Unlock()
		return ErrRecordingActive
	}
	u.busy = true
	u.abort = false
	u.mu.Unlock()

	stream, err := u.device.Open(ctx)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.busy = false

	if err != nil {
		if !errors.Is(err, ErrDeviceDenied) && !errors.Is(err, ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		return err
	}
	if u.abort {
		_ = stream.Release()
		return ErrCancelled
	}

	u.rec = &recording{stream: stream}
	u.state = Armed
	return nil
}

// Begin moves Armed to Recording and starts collecting fragments.
func (u *Unit) Begin() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != Armed {
		return fmt.Errorf("begin while %s", u.state)
	}

	rec := u.rec
	fragments, err := rec.stream.Start()
	if err != nil {
		_ = rec.stream.Release()
		u.rec = nil
		u.state = Idle
		return fmt.Errorf("%w: start capture: %v", ErrDeviceUnavailable, err)
	}

	rec.startedAt = u.now()
	rec.collected = make(chan struct{})
	u.state = Recording

	go u.collect(rec, fragments)
	return nil
}

// collect appends fragments in arrival order. Empty fragments are skipped.
func (u *Unit) collect(rec *recording, fragments <-chan []byte) {
	defer close(rec.collected)
	for frag := range fragments {
		if len(frag) == 0 {
			continue
		}
		buf := make([]byte, len(frag))
		copy(buf, frag)
		u.mu.Lock()
		rec.fragments = append(rec.fragments, buf)
		u.mu.Unlock()
	}
}

// End stops the recording and returns the encoded payload. It waits for the
// device to deliver its final fragment. Calling End while not Recording
// returns nil, nil and changes nothing. The device is released on every path.
func (u *Unit) End(ctx context.Context) (*Payload, error) {
	u.mu.Lock()
	if u.state != Recording {
		u.mu.Unlock()
		return nil, nil
	}
	rec := u.rec
	u.state = Stopping
	u.mu.Unlock()

	stopErr := rec.stream.Stop()

	select {
	case <-rec.collected:
		_ = rec.stream.Release()
	case <-ctx.Done():
		_ = rec.stream.Release()
		u.reset(rec)
		return nil, fmt.Errorf("waiting for final fragment: %w", ctx.Err())
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.rec != rec || u.state != Stopping {
		return nil, ErrCancelled
	}
	if stopErr != nil && len(rec.fragments) == 0 {
		u.rec = nil
		u.state = Idle
		return nil, fmt.Errorf("stop capture: %w", stopErr)
	}

	p := encode(rec.fragments, u.device.Format())
	p.duration = u.now().Sub(rec.startedAt)

	u.rec = nil
	u.result = p
	u.state = Encoded
	return p, nil
}

// Take hands over the encoded payload and returns the unit to Idle.
// It returns nil unless the unit is Encoded.
func (u *Unit) Take() *Payload {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != Encoded {
		return nil
	}
	p := u.result
	u.result = nil
	u.state = Idle
	return p
}

// Cancel abandons whatever the unit is doing and returns it to Idle,
// releasing the device first.
func (u *Unit) Cancel() {
	u.mu.Lock()
	if u.busy {
		u.abort = true
	}
	rec := u.rec
	state := u.state
	u.mu.Unlock()

	if rec != nil {
		if state == Recording {
			_ = rec.stream.Stop()
		}
		_ = rec.stream.Release()
	}
	u.reset(rec)

	u.mu.Lock()
	if u.state == Encoded {
		u.result = nil
		u.state = Idle
	}
	u.mu.Unlock()
}

func (u *Unit) reset(rec *recording) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if rec != nil && u.rec == rec {
		u.rec = nil
		u.state = Idle
	}
}

// encode concatenates fragments in order into one payload.
func encode(fragments [][]byte, format Format) *Payload {
	size := 0
	for _, f := range fragments {
		size += len(f)
	}
	data := make([]byte, 0, size)
	for _, f := range fragments {
		data = append(data, f...)
	}
	if format.MediaType == WAVFormat.MediaType {
		finalizeWAV(data)
	}
	return &Payload{data: data, format: format, fragments: len(fragments)}
}
