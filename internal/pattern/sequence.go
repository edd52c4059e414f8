package pattern

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/ledsched/internal/led"
)

// Step is one state of a pattern and how long it stays on the strip.
type Step struct {
	State    led.State
	Duration time.Duration
}

// Sequence is the ordered list of steps a pattern walks through on every
// repetition. It is owned by exactly one holder at a time: the generator
// while building, then the pattern it was handed to.
type Sequence struct {
	mu       sync.Mutex
	steps    []Step
	released bool
}

func (s *Sequence) append(step Step) {
	s.mu.Lock()
	s.steps = append(s.steps, step)
	s.mu.Unlock()
}

// Len returns the number of steps.
func (s *Sequence) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// Run performs one repetition: write each state, hold it for its duration,
// advance. A failed write does not stop the walk; all write errors are
// returned together. Run returns early only when ctx is done.
func (s *Sequence) Run(ctx context.Context, sink led.Sink) error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return ErrReleased
	}
	steps := s.steps
	s.mu.Unlock()

	var errs []error
	for i, step := range steps {
		if err := sink.Write(step.State); err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i, err))
		}
		if err := sleep(ctx, step.Duration); err != nil {
			errs = append(errs, err)
			break
		}
	}
	return errors.Join(errs...)
}

// Release drops every step. Both the generator's Reset and the scheduler's
// cleanup go through here; calling it again is a no-op.
func (s *Sequence) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = nil
	s.released = true
}

// Released reports whether Release has run.
func (s *Sequence) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
