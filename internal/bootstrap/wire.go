package bootstrap

import (
	"log/slog"
	"os"

	"mitherapy/internal/audio"
	"mitherapy/internal/config"
	"mitherapy/internal/domain"
	"mitherapy/internal/exercise"
	"mitherapy/internal/observability"
	"mitherapy/internal/ports"
	"mitherapy/internal/providers/deepgram"
	"mitherapy/internal/tone"
	"mitherapy/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Session      *usecase.Session
	Exercise     exercise.Exercise
	Capabilities domain.Capabilities
	Config       config.Config
	Logger       *slog.Logger
}

// recorderProbe and transcriberProbe are satisfied by the concrete adapters.
type recorderProbe interface {
	Available() error
}

type transcriberProbe interface {
	Available() bool
}

// Build loads configuration and wires all backend dependencies. haptics may
// be nil when the host has no vibration bridge.
func Build(sink ports.EventSink, haptics ports.Haptics) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger := observability.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	observability.SetDefault(logger)

	return BuildWithConfig(cfg, sink, haptics, logger)
}

// BuildWithConfig wires the runtime graph from an already loaded config.
func BuildWithConfig(cfg config.Config, sink ports.EventSink, haptics ports.Haptics, logger *slog.Logger) (Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ex, err := exercise.Load(cfg.Exercise.Path)
	if err != nil {
		return Services{}, err
	}
	if cfg.Exercise.Locale != "" {
		ex.Locale = cfg.Exercise.Locale
	}

	recorder := audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand, logger.With("component", "microphone"))
	provider := deepgram.NewProvider(deepgram.Config{
		APIKey:         cfg.Deepgram.APIKey,
		APIBaseURL:     cfg.Deepgram.APIBaseURL,
		Model:          cfg.Deepgram.Model,
		Language:       ex.Locale,
		SmartFormat:    cfg.Deepgram.SmartFormat,
		EndpointingMs:  cfg.Deepgram.EndpointingMs,
		UtteranceEndMs: cfg.Deepgram.UtteranceEndMs,
	}, logger.With("component", "deepgram"))

	caps := DetectCapabilities(cfg, recorder, provider, haptics != nil)
	logger.Info("capabilities detected",
		"audio", caps.Audio.Available,
		"haptics", caps.Haptics.Available,
		"speech", caps.Speech.Available,
	)

	capture := usecase.NewSpeechCapture(recorder, provider, usecase.CaptureConfig{
		Audio: ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		Streaming: ports.StreamingConfig{
			SampleRate:     cfg.Audio.SampleRate,
			Channels:       cfg.Audio.Channels,
			Encoding:       "linear16",
			Language:       ex.Locale,
			InterimResults: true,
			EndpointingMs:  cfg.Deepgram.EndpointingMs,
			UtteranceEndMs: cfg.Deepgram.UtteranceEndMs,
		},
		ChunkSize:    cfg.Audio.ChunkSize,
		MaxUtterance: cfg.Audio.MaxUtterance,
		StreamGrace:  cfg.Audio.StreamingGrace,
	}, logger.With("component", "capture"))

	session := usecase.NewSession(usecase.Deps{
		Exercise:     ex,
		Capabilities: caps,
		Audio:        tone.NewOutput(tone.Config{SampleRate: cfg.Output.SampleRate}, logger.With("component", "tone")),
		Haptics:      haptics,
		Capture:      capture,
		Events:       sink,
		Logger:       logger.With("component", "session"),
	})

	return Services{
		Session:      session,
		Exercise:     ex,
		Capabilities: caps,
		Config:       cfg,
		Logger:       logger,
	}, nil
}

// DetectCapabilities decides once, at startup, which device features the
// session may use.
func DetectCapabilities(cfg config.Config, recorder recorderProbe, transcriber transcriberProbe, hapticsBridge bool) domain.Capabilities {
	var caps domain.Capabilities

	if cfg.Output.Enabled {
		caps.Audio = domain.Capability{Available: true}
	} else {
		caps.Audio = domain.Capability{Reason: "audio output is disabled"}
	}

	switch {
	case !cfg.Haptics.Enabled:
		caps.Haptics = domain.Capability{Reason: "haptics are disabled"}
	case !hapticsBridge:
		caps.Haptics = domain.Capability{Reason: "no vibration bridge on this host"}
	default:
		caps.Haptics = domain.Capability{Available: true}
	}

	switch {
	case transcriber == nil || !transcriber.Available():
		caps.Speech = domain.Capability{Reason: deepgram.ErrMissingAPIKey.Error()}
	case recorder == nil:
		caps.Speech = domain.Capability{Reason: "no microphone recorder configured"}
	default:
		if err := recorder.Available(); err != nil {
			caps.Speech = domain.Capability{Reason: err.Error()}
		} else {
			caps.Speech = domain.Capability{Available: true}
		}
	}

	return caps
}
