package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mitherapy/internal/domain"
	"mitherapy/internal/ports"
)

var (
	ErrAlreadyListening = errors.New("speech capture already in progress")
	ErrNoActiveCapture  = errors.New("no active speech capture")
)

// CaptureConfig controls single-utterance capture.
type CaptureConfig struct {
	Audio        ports.AudioConfig
	Streaming    ports.StreamingConfig
	ChunkSize    int
	MaxUtterance time.Duration
	StreamGrace  time.Duration
}

// CaptureHandlers receive capture progress. OnEnd is always called exactly
// once for every successful Start.
type CaptureHandlers struct {
	OnPartial func(text string)
	OnError   func(code domain.ErrorCode, detail string)
	OnEnd     func(utterance domain.Utterance)
}

// SpeechCapture records one utterance at a time and transcribes it.
type SpeechCapture struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	cfg      CaptureConfig
	logger   *slog.Logger

	mu      sync.Mutex
	current *activeCapture
}

type activeCapture struct {
	id        string
	cancel    context.CancelFunc
	audio     ports.AudioSession
	stream    ports.StreamingSession
	audioDone chan struct{}
	ended     chan struct{}
}

func NewSpeechCapture(
	audio ports.AudioCapture,
	provider ports.TranscriptionProvider,
	cfg CaptureConfig,
	logger *slog.Logger,
) *SpeechCapture {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.StreamGrace <= 0 {
		cfg.StreamGrace = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeechCapture{
		audio:    audio,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start opens the microphone and a provider stream. It returns once both are
// running; the utterance is delivered to handlers.OnEnd.
func (c *SpeechCapture) Start(ctx context.Context, handlers CaptureHandlers) error {
	var (
		captureCtx context.Context
		cancel     context.CancelFunc
	)
	if c.cfg.MaxUtterance > 0 {
		captureCtx, cancel = context.WithTimeout(ctx, c.cfg.MaxUtterance)
	} else {
		captureCtx, cancel = context.WithCancel(ctx)
	}

	active := &activeCapture{
		id:        uuid.NewString(),
		cancel:    cancel,
		audioDone: make(chan struct{}),
		ended:     make(chan struct{}),
	}

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		cancel()
		return ErrAlreadyListening
	}
	c.current = active
	c.mu.Unlock()

	logger := c.logger.With("capture_id", active.id)

	stream, err := c.provider.StartStreaming(captureCtx, c.cfg.Streaming)
	if err != nil {
		c.abandon(active)
		return fmt.Errorf("failed to start transcription: %w", err)
	}

	mic, err := c.audio.Start(captureCtx, c.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		c.abandon(active)
		return fmt.Errorf("failed to start microphone: %w", err)
	}

	active.stream = stream
	active.audio = mic

	go pumpAudioChunks(captureCtx, mic, stream, c.cfg.ChunkSize, handlers.OnError, active.audioDone)
	go c.run(captureCtx, active, handlers, logger)

	logger.Info("speech capture started", "language", c.cfg.Streaming.Language)
	return nil
}

// Cancel discards the open capture and waits for it to wind down.
func (c *SpeechCapture) Cancel() error {
	c.mu.Lock()
	active := c.current
	c.mu.Unlock()
	if active == nil {
		return ErrNoActiveCapture
	}

	active.cancel()
	<-active.ended
	return nil
}

// Active reports whether a capture is open.
func (c *SpeechCapture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *SpeechCapture) run(ctx context.Context, active *activeCapture, handlers CaptureHandlers, logger *slog.Logger) {
	transcript, found := collectUtterance(active.stream.Events(), handlers.OnPartial)

	var streamErr error
	if !found && ctx.Err() == nil {
		streamErr = waitForStream(active.stream, c.cfg.StreamGrace)
	}

	active.cancel()
	if err := active.audio.Stop(); err != nil {
		logger.Warn("microphone did not stop cleanly", "error", err)
		if handlers.OnError != nil {
			handlers.OnError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
		}
	}
	_ = active.stream.Close()
	<-active.audioDone

	c.release(active)
	close(active.ended)

	utterance := domain.Utterance{Transcript: transcript, Found: found, Err: streamErr}
	switch {
	case found:
		logger.Info("utterance captured", "transcript", transcript)
	case streamErr != nil:
		logger.Warn("speech capture ended with error", "error", streamErr)
	default:
		logger.Info("speech capture ended without a result", "reason", context.Cause(ctx))
	}

	if handlers.OnEnd != nil {
		handlers.OnEnd(utterance)
	}
}

func (c *SpeechCapture) abandon(active *activeCapture) {
	active.cancel()
	c.release(active)
	close(active.ended)
}

func (c *SpeechCapture) release(active *activeCapture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == active {
		c.current = nil
	}
}
