package usecase

import (
	"context"
	"time"

	"mitherapy/internal/domain"
)

// toneWarmer is implemented by outputs that can pre-render their tones.
type toneWarmer interface {
	Warm(pitches []string, length time.Duration) error
}

// RequestAccess unlocks audio output. It must be triggered by a user gesture.
// Failures leave the gate closed and can be retried.
func (s *Session) RequestAccess(ctx context.Context) error {
	if !s.caps.Audio.Available {
		s.events.SessionError(domain.ErrorCodeAudioUnsupported, s.caps.Audio.Reason)
		return ErrAudioUnsupported
	}
	if s.State().PermissionGranted {
		return nil
	}

	if err := s.audio.Unlock(ctx); err != nil {
		s.logger.Error("audio unlock failed", "error", err)
		s.update(func(state *domain.SessionState) {
			state.ErrorMessage = StartupFailedMessage
		})
		s.events.SessionError(domain.ErrorCodeAudioUnlock, err.Error())
		return err
	}

	if warmer, ok := s.audio.(toneWarmer); ok {
		if err := warmer.Warm(s.exercise.Pitches(), s.exercise.NoteLength()); err != nil {
			s.logger.Warn("failed to pre-render tones", "error", err)
		}
	}

	s.update(func(state *domain.SessionState) {
		state.PermissionGranted = true
		state.ErrorMessage = ""
	})
	s.logger.Info("permission granted")
	return nil
}
