package usecase

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mitherapy/internal/ports"
)

// Cue is a callback fired at an offset from the start of a playback.
type Cue struct {
	At   time.Duration
	Fire func()
}

type playback struct {
	token  string
	timers []ports.Timer
	stale  bool
}

// Scheduler runs one playback at a time. Starting a new playback invalidates
// the previous one so its pending cues never fire.
type Scheduler struct {
	clock ports.Clock

	mu      sync.Mutex
	current *playback
}

func NewScheduler(clock ports.Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{clock: clock}
}

// Start schedules cues and returns the playback token.
func (s *Scheduler) Start(cues []Cue) string {
	pb := &playback{token: uuid.NewString()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.invalidate()
	}
	s.current = pb

	last := len(cues) - 1
	for i, cue := range cues {
		cue := cue
		final := i == last
		pb.timers = append(pb.timers, s.clock.AfterFunc(cue.At, func() {
			s.fire(pb, cue, final)
		}))
	}
	return pb.token
}

// Cancel invalidates the current playback, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.invalidate()
		s.current = nil
	}
}

// Active returns the token of the running playback or "".
func (s *Scheduler) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.token
}

func (s *Scheduler) fire(pb *playback, cue Cue, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pb.stale {
		return
	}
	if final && s.current == pb {
		s.current = nil
	}
	if cue.Fire != nil {
		cue.Fire()
	}
}

// invalidate must be called with the scheduler lock held.
func (p *playback) invalidate() {
	p.stale = true
	for _, timer := range p.timers {
		timer.Stop()
	}
}

// SystemClock schedules on the runtime timer wheel.
type SystemClock struct{}

func (SystemClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}
