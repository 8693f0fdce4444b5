// Package exercise holds the phrase and melodies a session practices.
package exercise

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"mitherapy/internal/domain"
	"mitherapy/internal/pitch"
)

//go:embed default.yaml
var defaultYAML []byte

// Exercise is one target phrase with its reference melodies.
type Exercise struct {
	TargetPhrase   string              `yaml:"target_phrase" json:"targetPhrase"`
	DisplayPhrase  string              `yaml:"display_phrase" json:"displayPhrase"`
	Locale         string              `yaml:"locale" json:"locale"`
	StepIntervalMs int                 `yaml:"step_interval_ms" json:"stepIntervalMs"`
	NoteLengthMs   int                 `yaml:"note_length_ms" json:"noteLengthMs"`
	Melody         []domain.MelodyStep `yaml:"melody" json:"melody"`
	SingAlong      []domain.MelodyStep `yaml:"sing_along" json:"singAlong"`
	Feedback       Feedback            `yaml:"feedback" json:"feedback"`
	Palette        Palette             `yaml:"palette" json:"palette"`
}

// Feedback holds the haptic patterns played after an attempt.
type Feedback struct {
	SuccessPattern domain.HapticPattern `yaml:"success_pattern_ms" json:"successPattern"`
	FailurePattern domain.HapticPattern `yaml:"failure_pattern_ms" json:"failurePattern"`
}

// Palette maps feedback colors to display colors.
type Palette struct {
	Neutral string `yaml:"neutral" json:"neutral"`
	Success string `yaml:"success" json:"success"`
	Failure string `yaml:"failure" json:"failure"`
}

// Default returns the built-in exercise.
func Default() Exercise {
	ex, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded exercise is invalid: %v", err))
	}
	return ex
}

// Load reads an exercise file. An empty path yields the default exercise.
func Load(path string) (Exercise, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return Exercise{}, fmt.Errorf("failed to read exercise file %q: %w", path, err)
	}
	ex, err := Parse(contents)
	if err != nil {
		return Exercise{}, fmt.Errorf("exercise file %q: %w", path, err)
	}
	return ex, nil
}

// Parse decodes and validates YAML exercise data.
func Parse(contents []byte) (Exercise, error) {
	var ex Exercise
	if err := yaml.Unmarshal(contents, &ex); err != nil {
		return Exercise{}, fmt.Errorf("invalid yaml: %w", err)
	}
	ex.applyDefaults()
	if err := ex.Validate(); err != nil {
		return Exercise{}, err
	}
	return ex, nil
}

func (e *Exercise) applyDefaults() {
	if e.DisplayPhrase == "" {
		e.DisplayPhrase = e.TargetPhrase
	}
	if e.Locale == "" {
		e.Locale = "en-US"
	}
	if e.NoteLengthMs == 0 {
		e.NoteLengthMs = 250
	}
	if e.Palette.Neutral == "" {
		e.Palette.Neutral = "#FFFFFF"
	}
	if e.Palette.Success == "" {
		e.Palette.Success = "#D4EDDA"
	}
	if e.Palette.Failure == "" {
		e.Palette.Failure = "#F8D7DA"
	}
}

// Validate checks the exercise for errors.
func (e Exercise) Validate() error {
	if strings.TrimSpace(e.TargetPhrase) == "" {
		return errors.New("target_phrase is required")
	}
	if e.StepIntervalMs <= 0 {
		return errors.New("step_interval_ms must be positive")
	}
	if e.NoteLengthMs <= 0 {
		return errors.New("note_length_ms must be positive")
	}
	if len(e.Melody) == 0 {
		return errors.New("melody must have at least one step")
	}
	if err := validateSteps("melody", e.Melody); err != nil {
		return err
	}
	if err := validateSteps("sing_along", e.SingAlong); err != nil {
		return err
	}
	if err := validatePattern("success_pattern_ms", e.Feedback.SuccessPattern); err != nil {
		return err
	}
	return validatePattern("failure_pattern_ms", e.Feedback.FailurePattern)
}

func validateSteps(name string, steps []domain.MelodyStep) error {
	for i, step := range steps {
		if _, err := pitch.Parse(step.Pitch); err != nil {
			return fmt.Errorf("%s step %d: %w", name, i, err)
		}
		if step.Label != domain.PitchHigh && step.Label != domain.PitchLow {
			return fmt.Errorf("%s step %d: label must be high or low, got %q", name, i, step.Label)
		}
		if step.DurationMs < 0 {
			return fmt.Errorf("%s step %d: duration_ms must not be negative", name, i)
		}
	}
	return nil
}

func validatePattern(name string, pattern domain.HapticPattern) error {
	if len(pattern) == 0 {
		return fmt.Errorf("%s must not be empty", name)
	}
	for _, ms := range pattern {
		if ms < 0 {
			return fmt.Errorf("%s must not contain negative durations", name)
		}
	}
	return nil
}

// StepInterval is the spacing between consecutive steps.
func (e Exercise) StepInterval() time.Duration {
	return time.Duration(e.StepIntervalMs) * time.Millisecond
}

// NoteLength is how long each tone sounds.
func (e Exercise) NoteLength() time.Duration {
	return time.Duration(e.NoteLengthMs) * time.Millisecond
}

// Sequence returns the steps for a melody kind.
func (e Exercise) Sequence(kind domain.MelodyKind) []domain.MelodyStep {
	switch kind {
	case domain.MelodyKindSingAlong:
		return e.SingAlong
	case domain.MelodyKindMelody:
		return e.Melody
	default:
		return nil
	}
}

// Pitches lists each distinct pitch used by the exercise.
func (e Exercise) Pitches() []string {
	all := append(append([]domain.MelodyStep{}, e.Melody...), e.SingAlong...)
	return lo.Uniq(lo.Map(all, func(step domain.MelodyStep, _ int) string {
		return step.Pitch
	}))
}

// Syllables joins the melody syllables, e.g. "What’s for din- ner?".
func (e Exercise) Syllables() string {
	return strings.Join(lo.Map(e.Melody, func(step domain.MelodyStep, _ int) string {
		return step.Syllable
	}), " ")
}
