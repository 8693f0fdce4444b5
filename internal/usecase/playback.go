package usecase

import (
	"mitherapy/internal/domain"
)

// PlayMelody plays the reference melody with a highlight on each step.
func (s *Session) PlayMelody() (string, error) {
	return s.play(domain.MelodyKindMelody)
}

// SingWithHaptics plays the sing-along sequence, pulsing each note for its duration.
func (s *Session) SingWithHaptics() (string, error) {
	return s.play(domain.MelodyKindSingAlong)
}

func (s *Session) play(kind domain.MelodyKind) (string, error) {
	if !s.State().PermissionGranted {
		return "", ErrAudioLocked
	}

	steps := s.exercise.Sequence(kind)
	s.update(func(state *domain.SessionState) {
		state.ActiveStepIndex = nil
		state.ActiveMelody = kind
	})

	token := s.player.Play(steps, PlaybackHooks{
		OnStep: func(index int) {
			s.update(func(state *domain.SessionState) {
				state.ActiveStepIndex = &index
				state.ActiveMelody = kind
			})
		},
		OnFinish: func() {
			s.update(func(state *domain.SessionState) {
				state.ActiveStepIndex = nil
				state.ActiveMelody = domain.MelodyKindNone
			})
		},
		OnError: func(index int, err error) {
			s.events.SessionError(domain.ErrorCodePlayback, err.Error())
		},
	})
	s.logger.Info("playback started", "kind", kind, "token", token, "steps", len(steps))
	return token, nil
}
