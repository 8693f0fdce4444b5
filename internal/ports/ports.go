package ports

import (
	"context"
	"io"
	"time"

	"mitherapy/internal/domain"
)

// AudioOutput plays reference tones. Unlock must run from a user gesture.
type AudioOutput interface {
	Unlock(ctx context.Context) error
	PlayTone(pitch string, length time.Duration) error
}

// Haptics drives a vibration motor. Calls are fire-and-forget.
type Haptics interface {
	Pulse(d time.Duration)
	Pattern(pattern domain.HapticPattern)
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	Language       string
	InterimResults bool
	EndpointingMs  int
	UtteranceEndMs int
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// Timer is a pending callback scheduled on a Clock.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks; time.AfterFunc in production.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// EventSink emits session state and feedback to the UI.
type EventSink interface {
	StateChanged(state domain.SessionState)
	PartialTranscript(text string)
	FeedbackGiven(result domain.FeedbackResult)
	SessionError(code domain.ErrorCode, detail string)
}
