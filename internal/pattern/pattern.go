// Package pattern builds the lighting sequences run by the scheduler.
//
// A Pattern pairs its executor with the finalizer for the data the executor
// walks, so whoever holds a Pattern can only release the data it owns, and
// only once.
package pattern

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/smazurov/ledsched/internal/led"
)

// Pattern errors.
var (
	ErrEmptyPattern     = errors.New("pattern has no states")
	ErrStateSize        = errors.New("state size does not match led count")
	ErrNegativeDuration = errors.New("state duration is negative")
	ErrTooManySteps     = errors.New("pattern exceeds maximum number of states")
	ErrReleased         = errors.New("pattern already released")
)

// ExecFunc runs one repetition of a pattern against sink. It must return
// once the repetition is over; the scheduler cannot interrupt it.
type ExecFunc func(ctx context.Context, sink led.Sink) error

// Options are the scalar fields of a pattern.
type Options struct {
	Name          string
	Interruptable bool
	// Repetitions is the number of times the pattern runs; 0 means forever.
	Repetitions uint32
	// EndState is written once after the last repetition. nil means none.
	EndState *led.State
}

// Pattern is a schedulable lighting sequence.
type Pattern struct {
	ID            string
	Name          string
	Interruptable bool
	Repetitions   uint32

	endState *led.State
	exec     ExecFunc
	cleanup  func()
	once     sync.Once
	released atomic.Bool
}

// New creates a pattern from a custom executor. cleanup, if not nil, frees
// whatever exec uses and is run exactly once by Release.
func New(opts Options, exec ExecFunc, cleanup func()) *Pattern {
	p := &Pattern{
		ID:            uuid.NewString(),
		Name:          opts.Name,
		Interruptable: opts.Interruptable,
		Repetitions:   opts.Repetitions,
		exec:          exec,
		cleanup:       cleanup,
	}
	if opts.EndState != nil {
		end := *opts.EndState
		p.endState = &end
	}
	if p.Name == "" {
		p.Name = p.ID[:8]
	}
	return p
}

// EndState returns the state to show after natural completion.
func (p *Pattern) EndState() (led.State, bool) {
	if p.endState == nil {
		return led.State{}, false
	}
	return *p.endState, true
}

// Infinite reports whether the pattern repeats forever.
func (p *Pattern) Infinite() bool {
	return p.Repetitions == 0
}

// Exec runs one repetition.
func (p *Pattern) Exec(ctx context.Context, sink led.Sink) error {
	if p.released.Load() {
		return ErrReleased
	}
	if p.exec == nil {
		return nil
	}
	return p.exec(ctx, sink)
}

// Release runs the pattern's cleanup. Only the first call has an effect.
func (p *Pattern) Release() {
	p.once.Do(func() {
		p.released.Store(true)
		if p.cleanup != nil {
			p.cleanup()
		}
	})
}

// Released reports whether Release has been called.
func (p *Pattern) Released() bool {
	return p.released.Load()
}
