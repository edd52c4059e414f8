package pattern

import (
	"fmt"
	"time"

	"github.com/smazurov/ledsched/internal/led"
)

// DefaultMaxSteps bounds the number of states a single pattern may hold.
const DefaultMaxSteps = 4096

// Generator accumulates states and hands them over as a Pattern.
//
// The first error from AddState or AddEndState is kept and returned by
// Generate, so a caller that ignores intermediate errors still cannot
// schedule a truncated pattern.
type Generator struct {
	ledCount int
	maxSteps int
	seq      *Sequence
	opts     Options
	err      error
}

// NewGenerator returns a generator for strips of ledCount LEDs.
func NewGenerator(ledCount int) *Generator {
	return &Generator{ledCount: ledCount, maxSteps: DefaultMaxSteps}
}

// SetMaxSteps overrides DefaultMaxSteps.
func (g *Generator) SetMaxSteps(n int) {
	if n > 0 {
		g.maxSteps = n
	}
}

// AddState appends a state shown for d.
func (g *Generator) AddState(state led.State, d time.Duration) error {
	if err := g.check(state); err != nil {
		return err
	}
	if d < 0 {
		return g.fail(fmt.Errorf("%w: %s", ErrNegativeDuration, d))
	}
	if g.seq == nil {
		g.seq = &Sequence{}
	}
	if g.seq.Len() >= g.maxSteps {
		return g.fail(fmt.Errorf("%w (%d)", ErrTooManySteps, g.maxSteps))
	}
	g.seq.append(Step{State: state, Duration: d})
	return nil
}

// Reserve fails fast when n more states would exceed the step limit, so
// callers can reject an oversized pattern before building its states.
func (g *Generator) Reserve(n int) error {
	if g.err != nil {
		return g.err
	}
	if n < 0 || n > g.maxSteps-g.Len() {
		return g.fail(fmt.Errorf("%w (%d)", ErrTooManySteps, g.maxSteps))
	}
	return nil
}

// AddEndState sets the state written once after the last repetition.
func (g *Generator) AddEndState(state led.State) error {
	if err := g.check(state); err != nil {
		return err
	}
	g.opts.EndState = &state
	return nil
}

// SetRepetitions sets how many times the pattern runs; 0 means forever.
func (g *Generator) SetRepetitions(n uint32) {
	g.opts.Repetitions = n
}

// SetInterruptable allows a queued pattern to replace this one between repetitions.
func (g *Generator) SetInterruptable(b bool) {
	g.opts.Interruptable = b
}

// SetName names the pattern for logs and the API.
func (g *Generator) SetName(name string) {
	g.opts.Name = name
}

// Len returns the number of states added so far.
func (g *Generator) Len() int {
	if g.seq == nil {
		return 0
	}
	return g.seq.Len()
}

// Generate transfers the built states to a new Pattern and resets the
// generator. On error the partial build is released and the generator is
// reset as well.
func (g *Generator) Generate() (*Pattern, error) {
	if g.err != nil {
		err := g.err
		g.Reset()
		return nil, err
	}
	if g.Len() == 0 {
		g.Reset()
		return nil, ErrEmptyPattern
	}

	seq := g.seq
	opts := g.opts
	g.seq = nil
	g.opts = Options{}

	return New(opts, seq.Run, seq.Release), nil
}

// Reset abandons the current build and frees it. Safe to call repeatedly
// and after Generate.
func (g *Generator) Reset() {
	if g.seq != nil {
		g.seq.Release()
		g.seq = nil
	}
	g.opts = Options{}
	g.err = nil
}

func (g *Generator) check(state led.State) error {
	if g.err != nil {
		return g.err
	}
	if state.Len() != g.ledCount {
		return g.fail(fmt.Errorf("%w: got %d, want %d", ErrStateSize, state.Len(), g.ledCount))
	}
	return nil
}

func (g *Generator) fail(err error) error {
	g.err = err
	return err
}
