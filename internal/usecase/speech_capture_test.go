package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mitherapy/internal/domain"
	"mitherapy/internal/ports"
)

type utteranceRecorder struct {
	mu       sync.Mutex
	ends     []domain.Utterance
	partials []string
	errors   []errEvent
}

func (r *utteranceRecorder) handlers() CaptureHandlers {
	return CaptureHandlers{
		OnPartial: func(text string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.partials = append(r.partials, text)
		},
		OnError: func(code domain.ErrorCode, detail string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, errEvent{code: code, detail: detail})
		},
		OnEnd: func(u domain.Utterance) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.ends = append(r.ends, u)
		},
	}
}

func (r *utteranceRecorder) snapshot() []domain.Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Utterance(nil), r.ends...)
}

func TestSpeechCaptureDeliversUtterance(t *testing.T) {
	t.Parallel()

	stream := newFakeStreamingSession(
		domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: "what's"},
		domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "What's for dinner?", IsSpeechFinal: true},
	)
	mic := &fakeAudioSession{chunks: [][]byte{[]byte("abc")}}
	provider := &fakeProvider{sessions: []*fakeStreamingSession{stream}}
	capture := NewSpeechCapture(
		&fakeAudioCapture{sessions: []ports.AudioSession{mic}},
		provider,
		CaptureConfig{Streaming: ports.StreamingConfig{Language: "en-US"}},
		nil,
	)

	rec := &utteranceRecorder{}
	if err := capture.Start(context.Background(), rec.handlers()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitFor(t, "utterance", func() bool { return len(rec.snapshot()) == 1 })

	got := rec.snapshot()[0]
	if !got.Found || got.Transcript != "What's for dinner?" || got.Err != nil {
		t.Fatalf("unexpected utterance: %+v", got)
	}
	if capture.Active() {
		t.Fatalf("expected capture to be released")
	}
	if mic.stops() == 0 {
		t.Fatalf("expected microphone to be stopped")
	}
	if stream.closes() == 0 {
		t.Fatalf("expected stream to be closed")
	}
	if provider.configs[0].Language != "en-US" {
		t.Fatalf("expected locale to reach provider, got %+v", provider.configs[0])
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.partials) != 1 || rec.partials[0] != "what's" {
		t.Fatalf("unexpected partials: %v", rec.partials)
	}
}

func TestSpeechCaptureRejectsSecondSession(t *testing.T) {
	t.Parallel()

	stream := newFakeStreamingSession()
	capture := NewSpeechCapture(
		&fakeAudioCapture{sessions: []ports.AudioSession{&fakeAudioSession{}, &fakeAudioSession{}}},
		&fakeProvider{sessions: []*fakeStreamingSession{stream, newFakeStreamingSession()}},
		CaptureConfig{},
		nil,
	)

	rec := &utteranceRecorder{}
	if err := capture.Start(context.Background(), rec.handlers()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := capture.Start(context.Background(), rec.handlers()); !errors.Is(err, ErrAlreadyListening) {
		t.Fatalf("expected ErrAlreadyListening, got %v", err)
	}

	if err := capture.Cancel(); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if capture.Active() {
		t.Fatalf("expected capture to be released after cancel")
	}
	waitFor(t, "utterance", func() bool { return len(rec.snapshot()) == 1 })
	ends := rec.snapshot()
	if len(ends) != 1 || ends[0].Found || ends[0].Err != nil {
		t.Fatalf("expected one empty utterance after cancel, got %+v", ends)
	}
}

func TestSpeechCaptureCancelWithoutSession(t *testing.T) {
	t.Parallel()

	capture := NewSpeechCapture(&fakeAudioCapture{}, &fakeProvider{}, CaptureConfig{}, nil)
	if err := capture.Cancel(); !errors.Is(err, ErrNoActiveCapture) {
		t.Fatalf("expected ErrNoActiveCapture, got %v", err)
	}
}

func TestSpeechCaptureProviderFailureReleases(t *testing.T) {
	t.Parallel()

	capture := NewSpeechCapture(
		&fakeAudioCapture{},
		&fakeProvider{err: errors.New("dial failed")},
		CaptureConfig{},
		nil,
	)

	rec := &utteranceRecorder{}
	if err := capture.Start(context.Background(), rec.handlers()); err == nil {
		t.Fatalf("expected start error")
	}
	if capture.Active() {
		t.Fatalf("expected capture to be released after failure")
	}
	if len(rec.snapshot()) != 0 {
		t.Fatalf("OnEnd must not run for a failed start")
	}
}

func TestSpeechCaptureMicrophoneFailureClosesStream(t *testing.T) {
	t.Parallel()

	stream := newFakeStreamingSession()
	capture := NewSpeechCapture(
		&fakeAudioCapture{err: errors.New("no ffmpeg")},
		&fakeProvider{sessions: []*fakeStreamingSession{stream}},
		CaptureConfig{},
		nil,
	)

	if err := capture.Start(context.Background(), (&utteranceRecorder{}).handlers()); err == nil {
		t.Fatalf("expected microphone error")
	}
	if stream.closes() == 0 {
		t.Fatalf("expected stream to be closed after microphone failure")
	}
	if capture.Active() {
		t.Fatalf("expected capture to be released")
	}
}

func TestSpeechCaptureStreamErrorWithoutTranscript(t *testing.T) {
	t.Parallel()

	stream := newFakeStreamingSession()
	stream.waitErr = errors.New("stream failed")
	capture := NewSpeechCapture(
		&fakeAudioCapture{sessions: []ports.AudioSession{&fakeAudioSession{}}},
		&fakeProvider{sessions: []*fakeStreamingSession{stream}},
		CaptureConfig{},
		nil,
	)

	rec := &utteranceRecorder{}
	if err := capture.Start(context.Background(), rec.handlers()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_ = stream.Close()
	waitFor(t, "utterance", func() bool { return len(rec.snapshot()) == 1 })

	got := rec.snapshot()[0]
	if got.Found || got.Err == nil || got.Err.Error() != "stream failed" {
		t.Fatalf("expected stream error, got %+v", got)
	}
}

func TestSpeechCaptureMaxUtteranceEndsWithoutResult(t *testing.T) {
	t.Parallel()

	stream := newFakeStreamingSession()
	stream.waitErr = errors.New("ignored after timeout")
	capture := NewSpeechCapture(
		&fakeAudioCapture{sessions: []ports.AudioSession{&fakeAudioSession{}}},
		&fakeProvider{sessions: []*fakeStreamingSession{stream}},
		CaptureConfig{MaxUtterance: 20 * time.Millisecond},
		nil,
	)

	rec := &utteranceRecorder{}
	if err := capture.Start(context.Background(), rec.handlers()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitFor(t, "utterance", func() bool { return len(rec.snapshot()) == 1 })

	got := rec.snapshot()[0]
	if got.Found || got.Err != nil {
		t.Fatalf("expected silent timeout, got %+v", got)
	}
}

func TestSpeechCaptureReportsStopFailure(t *testing.T) {
	t.Parallel()

	stream := newFakeStreamingSession(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "hi", IsSpeechFinal: true})
	capture := NewSpeechCapture(
		&fakeAudioCapture{sessions: []ports.AudioSession{&fakeAudioSession{stopErr: errors.New("stuck")}}},
		&fakeProvider{sessions: []*fakeStreamingSession{stream}},
		CaptureConfig{},
		nil,
	)

	rec := &utteranceRecorder{}
	if err := capture.Start(context.Background(), rec.handlers()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitFor(t, "utterance", func() bool { return len(rec.snapshot()) == 1 })

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.errors) == 0 || rec.errors[0].code != domain.ErrorCodeAudioStop {
		t.Fatalf("expected audio stop error, got %+v", rec.errors)
	}
}
