// Package tone renders and plays short reference tones through oto.
package tone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/patrickmn/go-cache"
)

var (
	// ErrLocked is returned when a tone is requested before Unlock succeeded.
	ErrLocked = errors.New("audio output is locked")
	// ErrDeviceUnavailable is sticky: oto allows one context per process, so
	// a failed creation cannot be retried without restarting.
	ErrDeviceUnavailable = errors.New("audio device unavailable, restart required")
)

// playbackContext is the part of *oto.Context the output uses.
type playbackContext interface {
	NewPlayer(r io.Reader) *oto.Player
	Err() error
}

type contextFactory func(opts *oto.NewContextOptions) (playbackContext, chan struct{}, error)

func newOtoContext(opts *oto.NewContextOptions) (playbackContext, chan struct{}, error) {
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, nil, err
	}
	return ctx, ready, nil
}

// Config controls tone synthesis.
type Config struct {
	SampleRate int
	Attack     time.Duration
	Release    time.Duration
	Volume     float64
}

// Output implements ports.AudioOutput on top of an oto context.
type Output struct {
	cfg        Config
	logger     *slog.Logger
	tones      *cache.Cache
	newContext contextFactory

	mu        sync.Mutex
	context   playbackContext
	ready     chan struct{}
	active    bool
	createErr error
}

func NewOutput(cfg Config, logger *slog.Logger) *Output {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Attack <= 0 {
		cfg.Attack = 5 * time.Millisecond
	}
	if cfg.Release <= 0 {
		cfg.Release = 120 * time.Millisecond
	}
	if cfg.Volume <= 0 || cfg.Volume > 1 {
		cfg.Volume = 0.4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Output{
		cfg:        cfg,
		logger:     logger,
		tones:      cache.New(cache.NoExpiration, 0),
		newContext: newOtoContext,
	}
}

// Unlock creates the audio context and waits until the device is ready.
// A context that failed to start makes every later call fail with
// ErrDeviceUnavailable.
func (o *Output) Unlock(ctx context.Context) error {
	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return nil
	}
	if o.createErr != nil {
		err := o.createErr
		o.mu.Unlock()
		return err
	}
	if o.context == nil {
		otoCtx, ready, err := o.newContext(&oto.NewContextOptions{
			SampleRate:   o.cfg.SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			o.createErr = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
			o.mu.Unlock()
			o.logger.Error("cannot create audio context", "error", err)
			return o.createErr
		}
		o.context = otoCtx
		o.ready = ready
	}
	otoCtx, ready := o.context, o.ready
	o.mu.Unlock()

	select {
	case <-ready:
	case <-ctx.Done():
		return fmt.Errorf("audio device not ready: %w", ctx.Err())
	}
	if err := otoCtx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	o.mu.Lock()
	o.active = true
	o.mu.Unlock()
	o.logger.Info("audio output unlocked", "sample_rate", o.cfg.SampleRate)
	return nil
}

// PlayTone starts a tone and returns without waiting for it to finish.
func (o *Output) PlayTone(pitchName string, length time.Duration) error {
	o.mu.Lock()
	otoCtx := o.context
	active := o.active
	o.mu.Unlock()
	if !active {
		return ErrLocked
	}

	pcm, err := o.buffer(pitchName, length)
	if err != nil {
		return err
	}

	player := otoCtx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	go func() {
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		if err := player.Close(); err != nil {
			o.logger.Warn("failed to close tone player", "pitch", pitchName, "error", err)
		}
	}()
	return nil
}

// Warm pre-renders tones so the first playback does not pay for synthesis.
func (o *Output) Warm(pitches []string, length time.Duration) error {
	for _, p := range pitches {
		if _, err := o.buffer(p, length); err != nil {
			return err
		}
	}
	return nil
}

func (o *Output) buffer(pitchName string, length time.Duration) ([]byte, error) {
	key := fmt.Sprintf("%s/%d", pitchName, length.Milliseconds())
	if cached, ok := o.tones.Get(key); ok {
		return cached.([]byte), nil
	}
	pcm, err := Render(pitchName, length, o.cfg)
	if err != nil {
		return nil, err
	}
	o.tones.Set(key, pcm, cache.NoExpiration)
	return pcm, nil
}
