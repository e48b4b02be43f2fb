package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoDevice captures 16-bit PCM from the default input device through
// miniaudio. Its fragments form a streaming WAV file.
type MalgoDevice struct {
	SampleRate int
	Channels   int
}

// NewMalgoDevice returns a device capturing at sampleRate Hz.
func NewMalgoDevice(sampleRate, channels int) *MalgoDevice {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}
	return &MalgoDevice{SampleRate: sampleRate, Channels: channels}
}

// Format reports WAV output.
func (d *MalgoDevice) Format() Format { return WAVFormat }

// Open initialises a capture device on the default input.
func (d *MalgoDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init audio context: %v", ErrDeviceUnavailable, err)
	}

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		freeContext(mctx)
		return nil, classify(err)
	}
	if len(infos) == 0 {
		freeContext(mctx)
		return nil, ErrDeviceUnavailable
	}

	s := &malgoStream{
		mctx:   mctx,
		header: wavHeader(d.SampleRate, d.Channels, 16),
	}
	s.cond = sync.NewCond(&s.mu)

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(d.Channels)
	cfg.SampleRate = uint32(d.SampleRate)
	cfg.PeriodSizeInMilliseconds = 20

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: s.onData,
	})
	if err != nil {
		freeContext(mctx)
		return nil, classify(err)
	}
	s.device = device

	return s, nil
}

// ListCaptureDevices returns the names of the host's input devices, with
// the default one marked.
func ListCaptureDevices() ([]string, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	defer freeContext(mctx)

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("list capture devices: %w", err)
	}

	names := make([]string, 0, len(infos))
	for i := range infos {
		name := infos[i].Name()
		if infos[i].IsDefault != 0 {
			name += " (default)"
		}
		names = append(names, name)
	}
	return names, nil
}

type malgoStream struct {
	mctx   *malgo.AllocatedContext
	device *malgo.Device
	header []byte

	mu      sync.Mutex
	cond    *sync.Cond
	queue   [][]byte
	halted  bool
	started bool

	releaseOnce sync.Once
}

// onData runs on the audio thread. It only copies and queues.
func (s *malgoStream) onData(_, input []byte, _ uint32) {
	if len(input) == 0 {
		return
	}
	frag := make([]byte, len(input))
	copy(frag, input)

	s.mu.Lock()
	if !s.halted {
		s.queue = append(s.queue, frag)
	}
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *malgoStream) Start() (<-chan []byte, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, fmt.Errorf("stream already started")
	}
	s.started = true
	s.queue = append(s.queue, s.header)
	s.mu.Unlock()

	out := make(chan []byte, 16)
	go s.pump(out)

	if err := s.device.Start(); err != nil {
		s.halt()
		return nil, err
	}
	return out, nil
}

// pump forwards queued fragments in order and closes out once halted and drained.
func (s *malgoStream) pump(out chan<- []byte) {
	defer close(out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.halted {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		frag := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		out <- frag
	}
}

func (s *malgoStream) Stop() error {
	// Device.Stop returns after the last data callback has run.
	err := s.device.Stop()
	s.halt()
	return err
}

func (s *malgoStream) halt() {
	s.mu.Lock()
	s.halted = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *malgoStream) Release() error {
	s.releaseOnce.Do(func() {
		s.halt()
		s.device.Uninit()
		freeContext(s.mctx)
	})
	return nil
}

func freeContext(mctx *malgo.AllocatedContext) {
	_ = mctx.Uninit()
	mctx.Free()
}

// classify maps backend error text onto the capture taxonomy.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"permission", "denied", "not allowed", "access"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrDeviceDenied, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
}
