package domain

import "time"

// PitchLabel is the coarse high/low category shown to the patient.
type PitchLabel string

const (
	PitchHigh PitchLabel = "high"
	PitchLow  PitchLabel = "low"
)

// MelodyStep is one note of the reference tune.
type MelodyStep struct {
	Pitch      string     `json:"pitch" yaml:"pitch"`
	Label      PitchLabel `json:"label" yaml:"label"`
	Syllable   string     `json:"syllable" yaml:"syllable"`
	Color      string     `json:"color" yaml:"color"`
	DurationMs int        `json:"durationMs" yaml:"duration_ms"`
}

// Duration returns the haptic pulse length of the step.
func (s MelodyStep) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// MelodyKind identifies which configured sequence is playing.
type MelodyKind string

const (
	MelodyKindNone      MelodyKind = ""
	MelodyKindMelody    MelodyKind = "melody"
	MelodyKindSingAlong MelodyKind = "sing_along"
)

// FeedbackColor is the visual verdict of the last attempt.
type FeedbackColor string

const (
	FeedbackNeutral FeedbackColor = "neutral"
	FeedbackSuccess FeedbackColor = "success"
	FeedbackFailure FeedbackColor = "failure"
)

// HapticPattern is an alternating on/off sequence in milliseconds, starting with "on".
type HapticPattern []int

// Durations converts the pattern into time.Duration values.
func (p HapticPattern) Durations() []time.Duration {
	out := make([]time.Duration, len(p))
	for i, ms := range p {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
}

// FeedbackResult is the outcome of evaluating one transcript.
type FeedbackResult struct {
	Transcript string        `json:"transcript"`
	Matched    bool          `json:"matched"`
	Color      FeedbackColor `json:"color"`
	Haptic     HapticPattern `json:"haptic"`
}

// SessionState is the observable state of a therapy session.
type SessionState struct {
	IsListening       bool          `json:"isListening"`
	Transcript        string        `json:"transcript"`
	PartialTranscript string        `json:"partialTranscript,omitempty"`
	FeedbackColor     FeedbackColor `json:"feedbackColor"`
	PermissionGranted bool          `json:"permissionGranted"`
	ActiveStepIndex   *int          `json:"activeStepIndex"`
	ActiveMelody      MelodyKind    `json:"activeMelody,omitempty"`
	ErrorMessage      string        `json:"errorMessage,omitempty"`
}

// Clone returns a copy that shares no pointers with s.
func (s SessionState) Clone() SessionState {
	out := s
	if s.ActiveStepIndex != nil {
		index := *s.ActiveStepIndex
		out.ActiveStepIndex = &index
	}
	return out
}

// Capability reports whether a host capability can be used.
type Capability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Capabilities is detected once at startup and handed to the session.
type Capabilities struct {
	Audio   Capability `json:"audio"`
	Haptics Capability `json:"haptics"`
	Speech  Capability `json:"speech"`
}

// ErrorCode identifies user-facing failures.
type ErrorCode string

const (
	ErrorCodeStartup           ErrorCode = "startup"
	ErrorCodeAudioUnsupported  ErrorCode = "audio_unsupported"
	ErrorCodeAudioUnlock       ErrorCode = "audio_unlock"
	ErrorCodeSpeechUnsupported ErrorCode = "speech_unsupported"
	ErrorCodeTranscription     ErrorCode = "transcription"
	ErrorCodeAudioStream       ErrorCode = "audio_stream"
	ErrorCodeAudioStop         ErrorCode = "audio_stop"
	ErrorCodePlayback          ErrorCode = "playback"
)

// TranscriptKind identifies the type of a provider event.
type TranscriptKind string

const (
	TranscriptKindPartial      TranscriptKind = "partial"
	TranscriptKindFinal        TranscriptKind = "final"
	TranscriptKindUtteranceEnd TranscriptKind = "utterance_end"
)

// TranscriptEvent represents incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// Utterance is the terminal result of one capture.
type Utterance struct {
	Transcript string
	Found      bool
	Err        error
}
