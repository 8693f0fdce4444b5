package usecase

import (
	"errors"
	"log/slog"
	"sync"

	"mitherapy/internal/domain"
	"mitherapy/internal/exercise"
	"mitherapy/internal/ports"
)

var (
	ErrAudioLocked       = errors.New("audio output has not been unlocked")
	ErrAudioUnsupported  = errors.New("audio output is not available")
	ErrSpeechUnsupported = errors.New("speech recognition is not available")
)

// StartupFailedMessage is shown when audio cannot be unlocked.
const StartupFailedMessage = "Something went wrong while starting the app."

// Deps is everything a Session needs from the host.
type Deps struct {
	Exercise     exercise.Exercise
	Capabilities domain.Capabilities
	Audio        ports.AudioOutput
	Haptics      ports.Haptics
	Capture      *SpeechCapture
	Events       ports.EventSink
	Clock        ports.Clock
	Logger       *slog.Logger
}

// Session is one Melodic Intonation Therapy exercise: permission gate,
// melody playback, speech capture and feedback.
type Session struct {
	exercise  exercise.Exercise
	caps      domain.Capabilities
	audio     ports.AudioOutput
	haptics   ports.Haptics
	player    *MelodyPlayer
	capture   *SpeechCapture
	evaluator Evaluator
	events    ports.EventSink
	logger    *slog.Logger

	mu    sync.Mutex
	state domain.SessionState
}

func NewSession(deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var haptics ports.Haptics
	if deps.Capabilities.Haptics.Available {
		haptics = deps.Haptics
	}

	ex := deps.Exercise
	return &Session{
		exercise: ex,
		caps:     deps.Capabilities,
		audio:    deps.Audio,
		haptics:  haptics,
		player: NewMelodyPlayer(
			deps.Audio,
			haptics,
			NewScheduler(deps.Clock),
			ex.StepInterval(),
			ex.NoteLength(),
			logger,
		),
		capture:   deps.Capture,
		evaluator: NewEvaluator(ex.TargetPhrase, ex.Feedback.SuccessPattern, ex.Feedback.FailurePattern),
		events:    deps.Events,
		logger:    logger,
		state:     domain.SessionState{FeedbackColor: domain.FeedbackNeutral},
	}
}

// State returns a snapshot of the session state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) Exercise() exercise.Exercise {
	return s.exercise
}

func (s *Session) Capabilities() domain.Capabilities {
	return s.caps
}

// Evaluate scores a transcript without touching session state.
func (s *Session) Evaluate(transcript string) domain.FeedbackResult {
	return s.evaluator.Evaluate(transcript)
}

// Close stops any playback or capture in flight.
func (s *Session) Close() {
	s.player.Stop()
	if s.capture != nil {
		if err := s.capture.Cancel(); err != nil && !errors.Is(err, ErrNoActiveCapture) {
			s.logger.Warn("failed to cancel speech capture", "error", err)
		}
	}
}

// update applies fn under the lock and emits the resulting snapshot.
func (s *Session) update(fn func(state *domain.SessionState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.events.StateChanged(snapshot)
}
