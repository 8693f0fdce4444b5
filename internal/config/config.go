package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores runtime configuration for the therapy session.
type Config struct {
	Deepgram DeepgramConfig
	Exercise ExerciseConfig
	Audio    AudioConfig
	Output   OutputConfig
	Haptics  HapticsConfig
	Log      LogConfig
}

type DeepgramConfig struct {
	APIKey         string
	APIBaseURL     string
	Model          string
	SmartFormat    bool
	EndpointingMs  int
	UtteranceEndMs int
}

type ExerciseConfig struct {
	// Path to a YAML exercise; empty selects the built-in exercise.
	Path string
	// Locale overrides the exercise locale when set.
	Locale string
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	ChunkSize       int
	MaxUtterance    time.Duration
	StreamingGrace  time.Duration
}

type OutputConfig struct {
	Enabled    bool
	SampleRate int
}

type HapticsConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level  string
	Format string
}

// bindings maps config keys to the environment variables consulted for them,
// in priority order.
var bindings = map[string][]string{
	"config_file":               {"MIT_CONFIG_FILE"},
	"deepgram.api_key":          {"DEEPGRAM_API_KEY"},
	"deepgram.api_base":         {"DEEPGRAM_API_BASE"},
	"deepgram.model":            {"DEEPGRAM_MODEL"},
	"deepgram.smart_format":     {"DEEPGRAM_SMART_FORMAT"},
	"deepgram.endpointing_ms":   {"DEEPGRAM_ENDPOINTING_MS"},
	"deepgram.utterance_end_ms": {"DEEPGRAM_UTTERANCE_END_MS"},
	"exercise.file":             {"MIT_EXERCISE_FILE"},
	"exercise.locale":           {"MIT_LOCALE", "DEEPGRAM_LANGUAGE"},
	"audio.ffmpeg_command":      {"MIT_FFMPEG_COMMAND"},
	"audio.input_format":        {"MIT_AUDIO_INPUT_FORMAT"},
	"audio.input_device":        {"MIT_AUDIO_INPUT_DEVICE", "DEEPGRAM_PULSE_SOURCE"},
	"audio.sample_rate":         {"MIT_SAMPLE_RATE"},
	"audio.channels":            {"MIT_CHANNELS"},
	"audio.chunk_size":          {"MIT_AUDIO_CHUNK_SIZE"},
	"audio.max_utterance_ms":    {"MIT_MAX_UTTERANCE_MS"},
	"audio.streaming_grace_ms":  {"MIT_STREAMING_GRACE_MS"},
	"output.enabled":            {"MIT_AUDIO_OUTPUT"},
	"output.sample_rate":        {"MIT_OUTPUT_SAMPLE_RATE"},
	"haptics.enabled":           {"MIT_HAPTICS"},
	"log.level":                 {"MIT_LOG_LEVEL"},
	"log.format":                {"MIT_LOG_FORMAT"},
}

var defaults = map[string]any{
	"deepgram.api_base":         "https://api.deepgram.com/v1",
	"deepgram.model":            "nova-2",
	"deepgram.smart_format":     "true",
	"deepgram.endpointing_ms":   300,
	"deepgram.utterance_end_ms": 1000,
	"audio.ffmpeg_command":      "ffmpeg",
	"audio.input_format":        "pulse",
	"audio.input_device":        "default",
	"audio.sample_rate":         16000,
	"audio.channels":            1,
	"audio.chunk_size":          4096,
	"audio.max_utterance_ms":    10000,
	"audio.streaming_grace_ms":  2000,
	"output.enabled":            "true",
	"output.sample_rate":        44100,
	"haptics.enabled":           "true",
	"log.level":                 "info",
	"log.format":                "text",
}

// Load resolves configuration from the environment, an optional YAML file
// named by MIT_CONFIG_FILE, and defaults. Environment variables win over the
// file.
func Load() (Config, error) {
	v := viper.New()
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path := strings.TrimSpace(v.GetString("config_file")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:         trimmed(v, "deepgram.api_key"),
			APIBaseURL:     stringOrDefault(v, "deepgram.api_base"),
			Model:          stringOrDefault(v, "deepgram.model"),
			SmartFormat:    boolOrDefault(v, "deepgram.smart_format"),
			EndpointingMs:  nonNegativeInt(v, "deepgram.endpointing_ms"),
			UtteranceEndMs: nonNegativeInt(v, "deepgram.utterance_end_ms"),
		},
		Exercise: ExerciseConfig{
			Path:   trimmed(v, "exercise.file"),
			Locale: trimmed(v, "exercise.locale"),
		},
		Audio: AudioConfig{
			RecorderCommand: stringOrDefault(v, "audio.ffmpeg_command"),
			InputFormat:     stringOrDefault(v, "audio.input_format"),
			InputDevice:     stringOrDefault(v, "audio.input_device"),
			SampleRate:      positiveInt(v, "audio.sample_rate"),
			Channels:        positiveInt(v, "audio.channels"),
			ChunkSize:       positiveInt(v, "audio.chunk_size"),
			MaxUtterance:    time.Duration(nonNegativeInt(v, "audio.max_utterance_ms")) * time.Millisecond,
			StreamingGrace:  time.Duration(nonNegativeInt(v, "audio.streaming_grace_ms")) * time.Millisecond,
		},
		Output: OutputConfig{
			Enabled:    boolOrDefault(v, "output.enabled"),
			SampleRate: positiveInt(v, "output.sample_rate"),
		},
		Haptics: HapticsConfig{
			Enabled: boolOrDefault(v, "haptics.enabled"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(stringOrDefault(v, "log.level")),
			Format: strings.ToLower(stringOrDefault(v, "log.format")),
		},
	}

	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = defaults["audio.chunk_size"].(int)
	}
	return cfg, nil
}

func trimmed(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func stringOrDefault(v *viper.Viper, key string) string {
	if value := trimmed(v, key); value != "" {
		return value
	}
	fallback, _ := defaults[key].(string)
	return fallback
}

func positiveInt(v *viper.Viper, key string) int {
	value := v.GetInt(key)
	if value <= 0 {
		value, _ = defaults[key].(int)
	}
	return value
}

// nonNegativeInt allows 0 to disable a limit; garbage falls back to the default.
func nonNegativeInt(v *viper.Viper, key string) int {
	raw := trimmed(v, key)
	value := v.GetInt(key)
	if value < 0 || (value == 0 && raw != "0") {
		value, _ = defaults[key].(int)
	}
	return value
}

func boolOrDefault(v *viper.Viper, key string) bool {
	switch strings.ToLower(trimmed(v, key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	fallback, _ := defaults[key].(string)
	return fallback == "true"
}
