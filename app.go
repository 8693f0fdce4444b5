package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"mitherapy/internal/bootstrap"
	"mitherapy/internal/config"
	"mitherapy/internal/domain"
	"mitherapy/internal/exercise"
	"mitherapy/internal/usecase"
)

const (
	eventState    = "mit:state"
	eventPartial  = "mit:partial"
	eventFeedback = "mit:feedback"
	eventHaptic   = "mit:haptic"
	eventError    = "mit:error"
)

// App is the Wails application root. It is also the session's event sink and
// forwards haptics to the webview, which owns the vibration motor.
type App struct {
	ctx  context.Context
	emit func(ctx context.Context, name string, data ...any)

	session *usecase.Session
	caps    domain.Capabilities
	cfg     config.Config
	bootErr error
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.caps = services.Capabilities
	a.session = services.Session
	a.StateChanged(a.session.State())
}

func (a *App) shutdown(_ context.Context) {
	if a.session != nil {
		a.session.Close()
	}
}

// Start unlocks audio output. The frontend calls it from the start button so
// it always follows a user gesture.
func (a *App) Start() (domain.SessionState, error) {
	if err := a.requireReady(); err != nil {
		return domain.SessionState{}, err
	}
	if err := a.session.RequestAccess(a.ctx); err != nil {
		return a.session.State(), err
	}
	return a.session.State(), nil
}

// PlayMelody plays the reference melody and returns its playback token.
func (a *App) PlayMelody() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.session.PlayMelody()
}

// SingWithHaptics plays the sing-along sequence with a pulse per note.
func (a *App) SingWithHaptics() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.session.SingWithHaptics()
}

// StartSpeaking listens for one attempt at the target phrase.
func (a *App) StartSpeaking() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	err := a.session.StartListening(a.ctx)
	if errors.Is(err, usecase.ErrAlreadyListening) {
		return nil
	}
	return err
}

func (a *App) GetState() domain.SessionState {
	if a.session == nil {
		state := domain.SessionState{FeedbackColor: domain.FeedbackNeutral}
		if a.bootErr != nil {
			state.ErrorMessage = usecase.StartupFailedMessage
		}
		return state
	}
	return a.session.State()
}

func (a *App) GetExercise() exercise.Exercise {
	if a.session == nil {
		return exercise.Default()
	}
	return a.session.Exercise()
}

func (a *App) GetCapabilities() domain.Capabilities {
	return a.caps
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"provider":         "Deepgram",
		"model":            a.cfg.Deepgram.Model,
		"language":         a.GetExercise().Locale,
		"exerciseFile":     a.cfg.Exercise.Path,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.session == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) send(name string, payload any) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, name, payload)
}

// StateChanged emits every session snapshot to the frontend.
func (a *App) StateChanged(state domain.SessionState) {
	a.send(eventState, state)
}

// PartialTranscript emits live partial transcript text.
func (a *App) PartialTranscript(text string) {
	a.send(eventPartial, map[string]string{"text": text})
}

// FeedbackGiven emits the verdict for the last attempt.
func (a *App) FeedbackGiven(result domain.FeedbackResult) {
	a.send(eventFeedback, result)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.send(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// Pulse vibrates once for d.
func (a *App) Pulse(d time.Duration) {
	a.send(eventHaptic, map[string][]int{"pattern": {int(d / time.Millisecond)}})
}

// Pattern vibrates an on/off pattern in milliseconds.
func (a *App) Pattern(pattern domain.HapticPattern) {
	a.send(eventHaptic, map[string][]int{"pattern": append([]int(nil), pattern...)})
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup, domain.ErrorCodeAudioUnlock:
		return usecase.StartupFailedMessage
	case domain.ErrorCodeAudioUnsupported:
		return "Audio playback is not supported on this device."
	case domain.ErrorCodeSpeechUnsupported:
		return "Speech recognition not supported on this device."
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodePlayback:
		return "Melody playback failed"
	case domain.ErrorCodeTranscription:
		return "Transcription error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
