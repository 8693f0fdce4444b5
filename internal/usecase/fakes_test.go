package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"mitherapy/internal/domain"
	"mitherapy/internal/exercise"
	"mitherapy/internal/ports"
)

type fakeClock struct {
	mu        sync.Mutex
	now       time.Duration
	timers    []*fakeTimer
	scheduled []time.Duration
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	seq     int
	f       func()
	fired   bool
	stopped bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, seq: len(c.timers), f: f}
	c.timers = append(c.timers, t)
	c.scheduled = append(c.scheduled, d)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance fires due timers in time order on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		due := make([]*fakeTimer, 0, len(c.timers))
		for _, t := range c.timers {
			if !t.fired && !t.stopped && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at == due[j].at {
				return due[i].seq < due[j].seq
			}
			return due[i].at < due[j].at
		})
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

func (c *fakeClock) snapshotScheduled() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.scheduled))
	copy(out, c.scheduled)
	return out
}

type fakeAudioOutput struct {
	mu          sync.Mutex
	unlockErrs  []error
	unlockCalls int
	warmCalls   int
	tones       []string
	toneErr     error
}

func (f *fakeAudioOutput) Unlock(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlockCalls++
	if len(f.unlockErrs) > 0 {
		err := f.unlockErrs[0]
		f.unlockErrs = f.unlockErrs[1:]
		return err
	}
	return nil
}

func (f *fakeAudioOutput) PlayTone(pitch string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tones = append(f.tones, pitch)
	return f.toneErr
}

func (f *fakeAudioOutput) Warm(_ []string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmCalls++
	return nil
}

func (f *fakeAudioOutput) snapshotTones() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.tones))
	copy(out, f.tones)
	return out
}

type fakeHaptics struct {
	mu       sync.Mutex
	pulses   []time.Duration
	patterns []domain.HapticPattern
}

func (f *fakeHaptics) Pulse(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulses = append(f.pulses, d)
}

func (f *fakeHaptics) Pattern(pattern domain.HapticPattern) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append(f.patterns, pattern)
}

func (f *fakeHaptics) snapshot() ([]time.Duration, []domain.HapticPattern) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pulses := append([]time.Duration(nil), f.pulses...)
	patterns := append([]domain.HapticPattern(nil), f.patterns...)
	return pulses, patterns
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu sync.Mutex

	states   []domain.SessionState
	partials []string
	feedback []domain.FeedbackResult
	errors   []errEvent
}

func (f *fakeEventSink) StateChanged(state domain.SessionState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func (f *fakeEventSink) PartialTranscript(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partials = append(f.partials, text)
}

func (f *fakeEventSink) FeedbackGiven(result domain.FeedbackResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, result)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []domain.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SessionState, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) snapshotFeedback() []domain.FeedbackResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.FeedbackResult, len(f.feedback))
	copy(out, f.feedback)
	return out
}

type fakeAudioCapture struct {
	mu       sync.Mutex
	sessions []ports.AudioSession
	err      error
	calls    int
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

type fakeAudioSession struct {
	mu        sync.Mutex
	chunks    [][]byte
	index     int
	stopCalls int
	stopErr   error
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index >= len(f.chunks) {
		return 0, io.EOF
	}
	n := copy(p, f.chunks[f.index])
	f.index++
	return n, nil
}

func (f *fakeAudioSession) Close() error { return nil }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

func (f *fakeAudioSession) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakeProvider struct {
	mu       sync.Mutex
	sessions []*fakeStreamingSession
	err      error
	calls    int
	configs  []ports.StreamingConfig
}

func (f *fakeProvider) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, cfg)
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no stream session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()
	return session, nil
}

type fakeStreamingSession struct {
	events     chan domain.TranscriptEvent
	waitErr    error
	closeCalls int
	closed     bool
	mu         sync.Mutex
}

func newFakeStreamingSession(events ...domain.TranscriptEvent) *fakeStreamingSession {
	s := &fakeStreamingSession{events: make(chan domain.TranscriptEvent, 16)}
	for _, event := range events {
		s.events <- event
	}
	return s
}

func (f *fakeStreamingSession) SendAudio(_ []byte) error { return nil }

func (f *fakeStreamingSession) CloseSend() error { return nil }

func (f *fakeStreamingSession) Events() <-chan domain.TranscriptEvent { return f.events }

func (f *fakeStreamingSession) Wait() error {
	time.Sleep(5 * time.Millisecond)
	return f.waitErr
}

func (f *fakeStreamingSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	if !f.closed {
		close(f.events)
		f.closed = true
	}
	return nil
}

func (f *fakeStreamingSession) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func allCapabilities() domain.Capabilities {
	return domain.Capabilities{
		Audio:   domain.Capability{Available: true},
		Haptics: domain.Capability{Available: true},
		Speech:  domain.Capability{Available: true},
	}
}

type sessionFixture struct {
	session  *Session
	clock    *fakeClock
	audio    *fakeAudioOutput
	haptics  *fakeHaptics
	events   *fakeEventSink
	mic      *fakeAudioCapture
	provider *fakeProvider
}

func newSessionFixture(caps domain.Capabilities, streams ...*fakeStreamingSession) *sessionFixture {
	fx := &sessionFixture{
		clock:    &fakeClock{},
		audio:    &fakeAudioOutput{},
		haptics:  &fakeHaptics{},
		events:   &fakeEventSink{},
		mic:      &fakeAudioCapture{},
		provider: &fakeProvider{sessions: streams},
	}
	for range streams {
		fx.mic.sessions = append(fx.mic.sessions, &fakeAudioSession{chunks: [][]byte{[]byte("pcm")}})
	}

	ex := exercise.Default()
	capture := NewSpeechCapture(fx.mic, fx.provider, CaptureConfig{
		Streaming: ports.StreamingConfig{Language: ex.Locale},
	}, nil)

	fx.session = NewSession(Deps{
		Exercise:     ex,
		Capabilities: caps,
		Audio:        fx.audio,
		Haptics:      fx.haptics,
		Capture:      capture,
		Events:       fx.events,
		Clock:        fx.clock,
	})
	return fx
}
