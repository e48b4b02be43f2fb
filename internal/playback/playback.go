// Package playback plays panelist speech (the closing message) through the
// default output device.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
)

// Player plays the audio behind ref and returns once playback ends or ctx
// is done.
type Player interface {
	Play(ctx context.Context, ref string) error
}

// Fetcher opens a backend audio reference such as a tts_url.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Nop is a Player that plays nothing.
type Nop struct{}

// Play returns immediately.
func (Nop) Play(context.Context, string) error { return nil }

// pollInterval is how often a running player is checked for completion.
const pollInterval = 50 * time.Millisecond

// Speaker decodes MP3 speech and plays it with oto. oto allows a single
// context per process, so the first clip fixes the sample rate.
type Speaker struct {
	fetcher Fetcher

	mu         sync.Mutex
	otoCtx     *oto.Context
	sampleRate int
}

// NewSpeaker returns a Speaker that fetches clips through f.
func NewSpeaker(f Fetcher) *Speaker {
	return &Speaker{fetcher: f}
}

// Play fetches, decodes and plays ref.
func (s *Speaker) Play(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}

	body, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	dec, err := mp3.NewDecoder(body)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", ref, err)
	}

	otoCtx, err := s.context(ctx, dec.SampleRate())
	if err != nil {
		return err
	}

	player := otoCtx.NewPlayer(dec)
	defer func() { _ = player.Close() }()
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Err()
}

func (s *Speaker) context(ctx context.Context, sampleRate int) (*oto.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.otoCtx != nil {
		if s.sampleRate != sampleRate {
			return nil, fmt.Errorf("clip sample rate %d differs from output rate %d", sampleRate, s.sampleRate)
		}
		return s.otoCtx, nil
	}

	// go-mp3 always emits 16-bit little-endian stereo.
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("opening output device: %w", err)
	}
	s.otoCtx = otoCtx
	s.sampleRate = sampleRate

	select {
	case <-ready:
	case <-ctx.Done():
		return nil, errors.Join(errors.New("output device not ready"), ctx.Err())
	}
	return otoCtx, nil
}
