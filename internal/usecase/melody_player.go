package usecase

import (
	"log/slog"
	"time"

	"mitherapy/internal/domain"
	"mitherapy/internal/ports"
)

// PlaybackHooks receive step and completion notifications from the player.
type PlaybackHooks struct {
	OnStep   func(index int)
	OnFinish func()
	OnError  func(index int, err error)
}

// MelodyPlayer sequences tones and haptic pulses at a fixed interval.
type MelodyPlayer struct {
	audio      ports.AudioOutput
	haptics    ports.Haptics
	scheduler  *Scheduler
	interval   time.Duration
	noteLength time.Duration
	logger     *slog.Logger
}

// NewMelodyPlayer builds a player. A nil haptics handle disables pulses.
func NewMelodyPlayer(
	audio ports.AudioOutput,
	haptics ports.Haptics,
	scheduler *Scheduler,
	interval time.Duration,
	noteLength time.Duration,
	logger *slog.Logger,
) *MelodyPlayer {
	if interval <= 0 {
		interval = 600 * time.Millisecond
	}
	if noteLength <= 0 {
		noteLength = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MelodyPlayer{
		audio:      audio,
		haptics:    haptics,
		scheduler:  scheduler,
		interval:   interval,
		noteLength: noteLength,
		logger:     logger,
	}
}

// Play schedules the sequence and returns its playback token immediately.
// Step i fires at i*interval; OnFinish fires at len(steps)*interval.
func (p *MelodyPlayer) Play(steps []domain.MelodyStep, hooks PlaybackHooks) string {
	cues := make([]Cue, 0, len(steps)+1)
	for i, step := range steps {
		i, step := i, step
		cues = append(cues, Cue{
			At:   time.Duration(i) * p.interval,
			Fire: func() { p.playStep(i, step, hooks) },
		})
	}
	cues = append(cues, Cue{
		At: time.Duration(len(steps)) * p.interval,
		Fire: func() {
			if hooks.OnFinish != nil {
				hooks.OnFinish()
			}
		},
	})

	token := p.scheduler.Start(cues)
	p.logger.Debug("melody scheduled", "token", token, "steps", len(steps), "interval", p.interval)
	return token
}

// Stop cancels any playback still in flight.
func (p *MelodyPlayer) Stop() {
	p.scheduler.Cancel()
}

func (p *MelodyPlayer) playStep(index int, step domain.MelodyStep, hooks PlaybackHooks) {
	if hooks.OnStep != nil {
		hooks.OnStep(index)
	}
	if err := p.audio.PlayTone(step.Pitch, p.noteLength); err != nil {
		p.logger.Warn("tone playback failed", "step", index, "pitch", step.Pitch, "error", err)
		if hooks.OnError != nil {
			hooks.OnError(index, err)
		}
	}
	if p.haptics != nil && step.DurationMs > 0 {
		p.haptics.Pulse(step.Duration())
	}
}
