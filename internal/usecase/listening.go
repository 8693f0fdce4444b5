package usecase

import (
	"context"
	"errors"

	"mitherapy/internal/domain"
)

// StartListening captures one utterance and evaluates it against the target
// phrase. It returns as soon as capture is running.
func (s *Session) StartListening(ctx context.Context) error {
	if !s.caps.Speech.Available || s.capture == nil {
		s.events.SessionError(domain.ErrorCodeSpeechUnsupported, s.caps.Speech.Reason)
		return ErrSpeechUnsupported
	}

	s.mu.Lock()
	if s.state.IsListening {
		s.mu.Unlock()
		return ErrAlreadyListening
	}
	s.state.IsListening = true
	s.state.PartialTranscript = ""
	snapshot := s.state.Clone()
	s.mu.Unlock()
	s.events.StateChanged(snapshot)

	err := s.capture.Start(ctx, CaptureHandlers{
		OnPartial: func(text string) {
			s.mu.Lock()
			s.state.PartialTranscript = text
			s.mu.Unlock()
			s.events.PartialTranscript(text)
		},
		OnError: s.events.SessionError,
		OnEnd:   s.finishListening,
	})
	if err != nil {
		s.update(func(state *domain.SessionState) {
			state.IsListening = false
		})
		if !errors.Is(err, ErrAlreadyListening) {
			s.events.SessionError(domain.ErrorCodeTranscription, err.Error())
		}
		return err
	}
	return nil
}

// CancelListening discards an open capture without evaluating it.
func (s *Session) CancelListening() error {
	if s.capture == nil {
		return ErrNoActiveCapture
	}
	return s.capture.Cancel()
}

func (s *Session) finishListening(utterance domain.Utterance) {
	if utterance.Err != nil {
		s.events.SessionError(domain.ErrorCodeTranscription, utterance.Err.Error())
	}

	if !utterance.Found {
		s.update(func(state *domain.SessionState) {
			state.IsListening = false
			state.PartialTranscript = ""
		})
		return
	}

	result := s.evaluator.Evaluate(utterance.Transcript)
	s.update(func(state *domain.SessionState) {
		state.IsListening = false
		state.PartialTranscript = ""
		state.Transcript = utterance.Transcript
		state.FeedbackColor = result.Color
	})
	if s.haptics != nil {
		s.haptics.Pattern(result.Haptic)
	}
	s.events.FeedbackGiven(result)
	s.logger.Info("attempt evaluated", "transcript", utterance.Transcript, "matched", result.Matched)
}
