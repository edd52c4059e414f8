// Package scheduler runs lighting patterns on an LED strip.
//
// A single goroutine (Run) owns pattern execution. Any number of producers
// submit patterns and control commands through bounded, non-blocking queues
// and read back the scheduler state and the last LED state from single-slot
// mailboxes.
//
// Executors must return at the end of each repetition. Commands are only
// observed between repetitions, so an executor that never returns leaves
// the scheduler unable to stop or pause.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/ledsched/internal/events"
	"github.com/smazurov/ledsched/internal/led"
	"github.com/smazurov/ledsched/internal/logging"
	"github.com/smazurov/ledsched/internal/mailbox"
	"github.com/smazurov/ledsched/internal/metrics"
	"github.com/smazurov/ledsched/internal/pattern"
)

// Output is the strip the scheduler drives.
type Output interface {
	led.Sink
	Last() (led.State, bool)
	Count() int
}

// Options configures a Scheduler.
type Options struct {
	QueueCapacity int
	Bus           *events.Bus
	Logger        *slog.Logger
}

// Scheduler is the single consumer of the pattern and command queues.
type Scheduler struct {
	out      Output
	patterns *PatternQueue
	commands *CommandQueue
	status   *mailbox.Mailbox[Status]
	bus      *events.Bus
	logger   *slog.Logger
	running  atomic.Bool

	// mode is held by the scheduler for as long as it is Running. Direct
	// LED writes must acquire it, so they can never interleave with
	// pattern output.
	mode sync.Mutex

	// Owned by the Run goroutine.
	state   State
	holding bool
	current *pattern.Pattern
	reps    uint32
}

// New creates a scheduler driving out. The scheduler does nothing until Run is called.
func New(out Output, opts Options) *Scheduler {
	capacity := opts.QueueCapacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("scheduler")
	}
	return &Scheduler{
		out:      out,
		patterns: NewPatternQueue(capacity),
		commands: NewCommandQueue(),
		status:   mailbox.New[Status](),
		bus:      opts.Bus,
		logger:   logger,
		state:    StateStopped,
	}
}

// Run executes the state machine until ctx is cancelled. On return the
// current pattern and every queued pattern have been released.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)
	defer s.shutdown()

	s.logger.Info("Scheduler started", "queue_capacity", s.patterns.Cap(), "leds", s.out.Count())
	s.setState(StateStopped)

	for ctx.Err() == nil {
		if s.state == StateRunning {
			select {
			case cmd := <-s.commands.recv():
				s.handle(ctx, cmd)
			default:
			}
		} else {
			select {
			case <-ctx.Done():
				return nil
			case cmd := <-s.commands.recv():
				s.handle(ctx, cmd)
			}
		}

		if s.state == StateRunning {
			s.step(ctx)
		}
		s.publish()
	}
	return nil
}

// handle applies one command to the state machine.
func (s *Scheduler) handle(ctx context.Context, cmd Command) {
	s.logger.Debug("Command received", "command", cmd, "state", s.state)

	if cmd == CommandReset {
		s.logger.Error("Command not supported", "command", cmd, "error", ErrNotImplemented)
		return
	}

	switch s.state {
	case StateStopped:
		if cmd == CommandStart {
			s.start(ctx)
		}
	case StateStarting:
		switch cmd {
		case CommandStart:
			s.start(ctx)
		case CommandStop:
			s.stop()
		case CommandPause:
			s.setState(StatePaused)
		case CommandResume:
			s.setState(StateRunning)
		}
	case StateRunning:
		switch cmd {
		case CommandStop:
			s.stop()
		case CommandPause:
			s.setState(StatePaused)
		}
	case StatePaused:
		switch cmd {
		case CommandStart, CommandResume:
			s.setState(StateRunning)
		case CommandStop:
			s.stop()
		}
	default:
		s.logger.Warn("Command ignored in state", "command", cmd, "state", s.state)
	}
}

// start waits for a pattern if none is loaded, then enters Running, or
// Starting when another command arrived in the meantime.
func (s *Scheduler) start(ctx context.Context) {
	if s.current == nil && !s.waitForPattern(ctx) {
		return
	}
	if s.commands.Len() > 0 {
		s.setState(StateStarting)
		return
	}
	s.setState(StateRunning)
}

// waitForPattern blocks until a pattern arrives and adopts it. Stop and
// Pause received while waiting end the wait without a pattern. A pattern
// that is already queued always wins over a pending command.
func (s *Scheduler) waitForPattern(ctx context.Context) bool {
	if p, ok := s.patterns.TryReceive(); ok {
		s.adopt(p)
		return true
	}
	s.setState(StateWaiting)
	for {
		select {
		case <-ctx.Done():
			return false
		case p := <-s.patterns.recv():
			s.adopt(p)
			return true
		case cmd := <-s.commands.recv():
			switch cmd {
			case CommandStop:
				s.setState(StateStopped)
				return false
			case CommandPause:
				s.setState(StatePaused)
				return false
			case CommandReset:
				s.logger.Error("Command not supported", "command", cmd, "error", ErrNotImplemented)
			default:
				s.logger.Debug("Command ignored while waiting for a pattern", "command", cmd)
			}
		}
	}
}

// step performs one iteration of the Running loop.
func (s *Scheduler) step(ctx context.Context) {
	if s.current == nil {
		if s.waitForPattern(ctx) {
			s.setState(StateRunning)
		}
		return
	}

	if !s.current.Infinite() && s.reps >= s.current.Repetitions {
		if end, ok := s.current.EndState(); ok {
			if err := s.out.Write(end); err != nil {
				s.logger.Warn("Failed to write end state", "pattern", s.current.Name, "error", err)
			}
		}
		s.finish(events.ReasonCompleted)
		if s.waitForPattern(ctx) {
			s.setState(StateRunning)
		}
		return
	}

	if s.current.Interruptable {
		if next, ok := s.patterns.TryReceive(); ok {
			s.finish(events.ReasonInterrupted)
			s.adopt(next)
			return
		}
	}

	if err := s.current.Exec(ctx, s.out); err != nil && ctx.Err() == nil {
		s.logger.Warn("Pattern repetition had errors",
			"pattern", s.current.Name,
			"repetition", s.reps,
			"error", err)
	}
	s.reps++
	metrics.RecordRepetition()
}

func (s *Scheduler) stop() {
	if s.current != nil {
		s.finish(events.ReasonStopped)
	}
	s.setState(StateStopped)
}

func (s *Scheduler) adopt(p *pattern.Pattern) {
	s.current = p
	s.reps = 0
	metrics.SetQueueDepth(s.patterns.Len())
	s.logger.Info("Pattern started",
		"pattern", p.Name,
		"pattern_id", p.ID,
		"repetitions", p.Repetitions,
		"interruptable", p.Interruptable)
	s.bus.Publish(events.PatternStartedEvent{
		PatternID:     p.ID,
		Name:          p.Name,
		Interruptable: p.Interruptable,
		Repetitions:   p.Repetitions,
		Timestamp:     now(),
	})
}

// finish releases the current pattern exactly once.
func (s *Scheduler) finish(reason string) {
	p := s.current
	s.current = nil
	reps := s.reps
	s.reps = 0
	s.release(p, reason, reps)
}

func (s *Scheduler) release(p *pattern.Pattern, reason string, reps uint32) {
	p.Release()
	metrics.RecordPatternFinished(reason)
	s.logger.Info("Pattern finished", "pattern", p.Name, "pattern_id", p.ID, "reason", reason, "repetitions", reps)
	s.bus.Publish(events.PatternFinishedEvent{
		PatternID:   p.ID,
		Name:        p.Name,
		Reason:      reason,
		Repetitions: reps,
		Timestamp:   now(),
	})
}

// setState moves the state machine and publishes the result. The mode lock
// is taken before Running becomes visible and dropped only after another
// state has been published.
func (s *Scheduler) setState(next State) {
	prev := s.state
	if next == StateRunning && !s.holding {
		s.mode.Lock()
		s.holding = true
	}
	s.state = next
	s.publish()
	if next != StateRunning && s.holding {
		s.holding = false
		s.mode.Unlock()
	}

	if prev == next {
		return
	}
	metrics.SetSchedulerState(string(next))
	s.logger.Debug("State changed", "from", prev, "to", next)
	ev := events.SchedulerStateChangedEvent{
		State:     string(next),
		Previous:  string(prev),
		Timestamp: now(),
	}
	if s.current != nil {
		ev.PatternID = s.current.ID
	}
	s.bus.Publish(ev)
}

// publish overwrites the state mailbox.
func (s *Scheduler) publish() {
	st := Status{
		State:      s.state,
		Repetition: s.reps,
		QueueDepth: s.patterns.Len(),
	}
	if s.current != nil {
		st.PatternID = s.current.ID
		st.PatternName = s.current.Name
		st.Repetitions = s.current.Repetitions
	}
	s.status.Store(st)
}

func (s *Scheduler) shutdown() {
	if s.current != nil {
		s.finish(events.ReasonStopped)
	}
	for _, p := range s.patterns.Drain() {
		s.release(p, events.ReasonDiscarded, 0)
	}
	metrics.SetQueueDepth(0)
	s.setState(StateStopped)
	s.logger.Info("Scheduler stopped")
}

// Schedule submits p for display. Ownership passes to the scheduler on
// success; on ErrQueueFull the caller still owns p.
func (s *Scheduler) Schedule(p *pattern.Pattern) error {
	if p == nil || p.Released() {
		return newError(ErrCodeInvalidPattern, "pattern is nil or already released", nil)
	}
	if err := s.patterns.TrySend(p); err != nil {
		metrics.RecordPatternRejected()
		return err
	}
	metrics.RecordPatternScheduled()
	metrics.SetQueueDepth(s.patterns.Len())
	s.logger.Debug("Pattern queued", "pattern", p.Name, "pattern_id", p.ID)
	return nil
}

// Start asks the scheduler to start displaying patterns.
func (s *Scheduler) Start() error { return s.Send(CommandStart) }

// Stop asks the scheduler to stop and release the current pattern.
func (s *Scheduler) Stop() error { return s.Send(CommandStop) }

// Pause asks the scheduler to pause between repetitions.
func (s *Scheduler) Pause() error { return s.Send(CommandPause) }

// Resume asks a paused scheduler to continue.
func (s *Scheduler) Resume() error { return s.Send(CommandResume) }

// Send enqueues a command without blocking.
func (s *Scheduler) Send(cmd Command) error {
	err := s.commands.TrySend(cmd)
	metrics.RecordCommand(string(cmd), err == nil)
	return err
}

// ClearAll sends Stop and releases every queued pattern. The pattern
// currently on display is released by the scheduler once it observes Stop.
func (s *Scheduler) ClearAll() error {
	if err := s.Stop(); err != nil {
		return err
	}
	for _, p := range s.patterns.Drain() {
		s.release(p, events.ReasonDiscarded, 0)
	}
	metrics.SetQueueDepth(0)
	return nil
}

// State returns the last published state, or StateUnknown before Run has
// published anything.
func (s *Scheduler) State() State {
	return s.Status().State
}

// Status returns the last published status.
func (s *Scheduler) Status() Status {
	st, ok := s.status.Load()
	if !ok {
		return Status{State: StateUnknown, QueueDepth: s.patterns.Len()}
	}
	return st
}

// Leds returns the last state written to the strip. ok is false if nothing
// has been written yet.
func (s *Scheduler) Leds() (led.State, bool) {
	return s.out.Last()
}

// LedCount returns the number of LEDs on the strip.
func (s *Scheduler) LedCount() int {
	return s.out.Count()
}

// QueueLen returns the number of patterns waiting right now.
func (s *Scheduler) QueueLen() int {
	return s.patterns.Len()
}

// QueueCapacity returns the pattern queue capacity.
func (s *Scheduler) QueueCapacity() int {
	return s.patterns.Cap()
}

// SetLed writes a single LED. Only allowed while the scheduler is Paused or
// Stopped; other LEDs keep their last written color.
func (s *Scheduler) SetLed(index int, c led.Color) error {
	if index < 0 || index >= s.out.Count() {
		return newError(ErrCodeNoSuchLed, fmt.Sprintf("led %d out of range [0,%d)", index, s.out.Count()), nil)
	}
	return s.direct(func() error {
		cur, ok := s.out.Last()
		if !ok {
			cur = led.NewState(s.out.Count())
		}
		return s.out.Write(cur.With(index, c))
	})
}

// SetLeds writes the whole strip. Only allowed while the scheduler is Paused or Stopped.
func (s *Scheduler) SetLeds(state led.State) error {
	return s.direct(func() error {
		return s.out.Write(state)
	})
}

func (s *Scheduler) direct(write func() error) error {
	if !s.mode.TryLock() {
		return ErrBusy
	}
	defer s.mode.Unlock()

	switch st := s.State(); st {
	case StatePaused, StateStopped:
	default:
		return newError(ErrCodeBusy, fmt.Sprintf("leds cannot be set while %s", st), nil)
	}

	if err := write(); err != nil {
		var hw *led.HwError
		if errors.As(err, &hw) {
			return err
		}
		return fmt.Errorf("direct write: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
