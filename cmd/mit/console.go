package main

import (
	"fmt"
	"io"
	"sync"

	"mitherapy/internal/domain"
	"mitherapy/internal/exercise"
)

// consoleSink prints session events as plain lines.
type consoleSink struct {
	mu       sync.Mutex
	out      io.Writer
	exercise exercise.Exercise
	lastStep *int

	feedback chan domain.FeedbackResult
	idle     chan struct{}
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{
		out:      out,
		feedback: make(chan domain.FeedbackResult, 1),
		idle:     make(chan struct{}, 1),
	}
}

func (c *consoleSink) setExercise(ex exercise.Exercise) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exercise = ex
}

func (c *consoleSink) StateChanged(state domain.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state.ActiveStepIndex != nil && (c.lastStep == nil || *c.lastStep != *state.ActiveStepIndex) {
		index := *state.ActiveStepIndex
		c.lastStep = &index
		if steps := c.exercise.Sequence(state.ActiveMelody); index < len(steps) {
			step := steps[index]
			fmt.Fprintf(c.out, "  %s %s\n", noteMarker(step.Label), step.Syllable)
		}
	}

	if state.ActiveStepIndex == nil && c.lastStep != nil {
		c.lastStep = nil
		select {
		case c.idle <- struct{}{}:
		default:
		}
	}
}

func (c *consoleSink) PartialTranscript(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "  ... %s\n", text)
}

func (c *consoleSink) FeedbackGiven(result domain.FeedbackResult) {
	select {
	case c.feedback <- result:
	default:
	}
}

func (c *consoleSink) SessionError(code domain.ErrorCode, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if detail == "" {
		fmt.Fprintf(c.out, "error (%s)\n", code)
		return
	}
	fmt.Fprintf(c.out, "error (%s): %s\n", code, detail)
}

func noteMarker(label domain.PitchLabel) string {
	if label == domain.PitchHigh {
		return "● high"
	}
	return "○ low "
}
