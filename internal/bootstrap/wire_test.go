package bootstrap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mitherapy/internal/config"
	"mitherapy/internal/domain"
)

func testConfig() config.Config {
	return config.Config{
		Deepgram: config.DeepgramConfig{APIKey: "test-key", Model: "nova-2"},
		Audio:    config.AudioConfig{RecorderCommand: "ffmpeg", SampleRate: 16000, Channels: 1, ChunkSize: 4096},
		Output:   config.OutputConfig{Enabled: true, SampleRate: 44100},
		Haptics:  config.HapticsConfig{Enabled: true},
	}
}

func TestBuildWithConfigDefaultExercise(t *testing.T) {
	t.Parallel()

	services, err := BuildWithConfig(testConfig(), noopEventSink{}, noopHaptics{}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Session == nil {
		t.Fatalf("expected session")
	}
	if services.Exercise.TargetPhrase != "what's for dinner" || services.Exercise.Locale != "en-US" {
		t.Fatalf("unexpected exercise: %+v", services.Exercise)
	}
	if !services.Capabilities.Audio.Available || !services.Capabilities.Haptics.Available {
		t.Fatalf("unexpected capabilities: %+v", services.Capabilities)
	}
	if services.Session.State().PermissionGranted {
		t.Fatalf("session must start locked")
	}
}

func TestBuildWithConfigLocaleOverride(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Exercise.Locale = "en-GB"

	services, err := BuildWithConfig(cfg, noopEventSink{}, nil, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Exercise.Locale != "en-GB" {
		t.Fatalf("expected locale override, got %q", services.Exercise.Locale)
	}
	if services.Capabilities.Haptics.Available {
		t.Fatalf("haptics need a bridge")
	}
}

func TestBuildWithConfigFailsOnInvalidExercise(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("target_phrase: \"\"\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cfg := testConfig()
	cfg.Exercise.Path = path

	if _, err := BuildWithConfig(cfg, noopEventSink{}, nil, nil); err == nil {
		t.Fatalf("expected build error due to invalid exercise")
	}
}

func TestBuildLoadsEnvironment(t *testing.T) {
	t.Setenv("MIT_CONFIG_FILE", "")
	t.Setenv("MIT_EXERCISE_FILE", "")
	t.Setenv("MIT_LOCALE", "")
	t.Setenv("DEEPGRAM_LANGUAGE", "")
	t.Setenv("DEEPGRAM_API_KEY", "")
	t.Setenv("MIT_LOG_LEVEL", "error")

	services, err := Build(noopEventSink{}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Capabilities.Speech.Available {
		t.Fatalf("speech needs an API key")
	}
	if services.Config.Log.Level != "error" {
		t.Fatalf("unexpected log level: %q", services.Config.Log.Level)
	}
}

func TestDetectCapabilities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		mutate      func(*config.Config)
		recorderErr error
		hasKey      bool
		bridge      bool
		want        [3]bool
	}{
		{name: "everything", hasKey: true, bridge: true, want: [3]bool{true, true, true}},
		{name: "output disabled", mutate: func(c *config.Config) { c.Output.Enabled = false }, hasKey: true, bridge: true, want: [3]bool{false, true, true}},
		{name: "haptics disabled", mutate: func(c *config.Config) { c.Haptics.Enabled = false }, hasKey: true, bridge: true, want: [3]bool{true, false, true}},
		{name: "no bridge", hasKey: true, want: [3]bool{true, false, true}},
		{name: "no key", bridge: true, want: [3]bool{true, true, false}},
		{name: "no ffmpeg", recorderErr: errors.New("ffmpeg not found"), hasKey: true, bridge: true, want: [3]bool{true, true, false}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			caps := DetectCapabilities(cfg, stubRecorder{err: tc.recorderErr}, stubTranscriber(tc.hasKey), tc.bridge)
			got := [3]bool{caps.Audio.Available, caps.Haptics.Available, caps.Speech.Available}
			if got != tc.want {
				t.Fatalf("got %v, want %v (%+v)", got, tc.want, caps)
			}
			for _, c := range []domain.Capability{caps.Audio, caps.Haptics, caps.Speech} {
				if !c.Available && c.Reason == "" {
					t.Fatalf("unavailable capability needs a reason: %+v", caps)
				}
			}
		})
	}
}

type stubRecorder struct{ err error }

func (s stubRecorder) Available() error { return s.err }

type stubTranscriber bool

func (s stubTranscriber) Available() bool { return bool(s) }

type noopEventSink struct{}

func (noopEventSink) StateChanged(_ domain.SessionState)        {}
func (noopEventSink) PartialTranscript(_ string)                {}
func (noopEventSink) FeedbackGiven(_ domain.FeedbackResult)     {}
func (noopEventSink) SessionError(_ domain.ErrorCode, _ string) {}

type noopHaptics struct{}

func (noopHaptics) Pulse(_ time.Duration)          {}
func (noopHaptics) Pattern(_ domain.HapticPattern) {}
