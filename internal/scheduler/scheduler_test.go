package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/ledsched/internal/events"
	"github.com/smazurov/ledsched/internal/led"
	"github.com/smazurov/ledsched/internal/pattern"
)

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
	numLeds = 3
)

type harness struct {
	mem    *led.Memory
	strip  *led.Strip
	sched  *Scheduler
	cancel context.CancelFunc
	done   chan error
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	mem := led.NewMemory(numLeds)
	strip := led.NewStrip(mem, numLeds, opts.Bus, nil)
	return &harness{mem: mem, strip: strip, sched: New(strip, opts)}
}

// run starts the scheduler loop and stops it when the test ends.
func (h *harness) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- h.sched.Run(ctx) }()
	t.Cleanup(h.shutdown)
	h.waitState(t, StateStopped)
}

func (h *harness) shutdown() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
	h.cancel = nil
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.sched.State() == want }, waitFor, time.Millisecond,
		"scheduler never reached %s (last %s)", want, h.sched.State())
}

// send retries while the single command slot is occupied.
func (h *harness) send(t *testing.T, cmd Command) {
	t.Helper()
	require.Eventually(t, func() bool {
		err := h.sched.Send(cmd)
		if err != nil {
			require.ErrorIs(t, err, ErrCommandQueueFull)
		}
		return err == nil
	}, waitFor, time.Millisecond)
}

func (h *harness) frames() []led.State {
	return h.mem.Frames()
}

func generate(t *testing.T, reps uint32, interruptable bool, end *led.State, colors ...led.Color) *pattern.Pattern {
	t.Helper()
	g := pattern.NewGenerator(numLeds)
	for _, c := range colors {
		require.NoError(t, g.AddState(led.Fill(numLeds, c), tick))
	}
	if end != nil {
		require.NoError(t, g.AddEndState(*end))
	}
	g.SetRepetitions(reps)
	g.SetInterruptable(interruptable)
	p, err := g.Generate()
	require.NoError(t, err)
	return p
}

// tracked counts executions and cleanups of a custom pattern.
type tracked struct {
	*pattern.Pattern
	execs    atomic.Int32
	cleanups atomic.Int32
}

func newTracked(opts pattern.Options, c led.Color) *tracked {
	tp := &tracked{}
	tp.Pattern = pattern.New(opts, func(_ context.Context, sink led.Sink) error {
		tp.execs.Add(1)
		err := sink.Write(led.Fill(numLeds, c))
		time.Sleep(tick)
		return err
	}, func() { tp.cleanups.Add(1) })
	return tp
}

// gated blocks inside every repetition until the test lets it go.
type gated struct {
	*pattern.Pattern
	enter    chan struct{}
	proceed  chan struct{}
	cleanups atomic.Int32
}

func newGated(opts pattern.Options) *gated {
	gp := &gated{enter: make(chan struct{}, 16), proceed: make(chan struct{})}
	gp.Pattern = pattern.New(opts, func(ctx context.Context, sink led.Sink) error {
		gp.enter <- struct{}{}
		if err := sink.Write(led.Fill(numLeds, led.Red)); err != nil {
			return err
		}
		select {
		case <-gp.proceed:
		case <-ctx.Done():
		}
		return nil
	}, func() { gp.cleanups.Add(1) })
	return gp
}

func (g *gated) waitEnter(t *testing.T) {
	t.Helper()
	select {
	case <-g.enter:
	case <-time.After(waitFor):
		t.Fatal("pattern repetition never started")
	}
}

func colorsOf(states []led.State) []led.Color {
	out := make([]led.Color, 0, len(states))
	for _, s := range states {
		c, _ := s.At(0)
		out = append(out, c)
	}
	return out
}

func TestStateUnknownBeforeRun(t *testing.T) {
	h := newHarness(t, Options{})
	assert.Equal(t, StateUnknown, h.sched.State())
	assert.Equal(t, DefaultQueueCapacity, h.sched.QueueCapacity())
}

func TestRunTwice(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)
	err := h.sched.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestScenarioRepeatsThenWaits(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	p := generate(t, 2, false, nil, led.Red, led.Green, led.Blue)
	require.NoError(t, h.sched.Schedule(p))
	require.NoError(t, h.sched.Start())

	require.Eventually(t, p.Released, waitFor, time.Millisecond)
	h.waitState(t, StateWaiting)

	assert.Equal(t, []led.Color{led.Red, led.Green, led.Blue, led.Red, led.Green, led.Blue}, colorsOf(h.frames()))
	last, ok := h.sched.Leds()
	require.True(t, ok)
	assert.True(t, last.Equal(led.Fill(numLeds, led.Blue)))
}

func TestScenarioWritesEndStateOnCompletion(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	off := led.NewState(numLeds)
	p := generate(t, 2, false, &off, led.Red, led.Green, led.Blue)
	require.NoError(t, h.sched.Schedule(p))
	require.NoError(t, h.sched.Start())

	require.Eventually(t, p.Released, waitFor, time.Millisecond)
	h.waitState(t, StateWaiting)

	frames := h.frames()
	require.Len(t, frames, 7)
	assert.True(t, frames[6].Equal(off))
	last, _ := h.sched.Leds()
	assert.True(t, last.Equal(off))
}

func TestScenarioInterruptReplacesInfinitePattern(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	end := led.Fill(numLeds, led.White)
	p1 := newTracked(pattern.Options{Name: "p1", Interruptable: true, EndState: &end}, led.Red)
	p2 := newTracked(pattern.Options{Name: "p2", Repetitions: 1}, led.Green)

	require.NoError(t, h.sched.Schedule(p1.Pattern))
	require.NoError(t, h.sched.Start())
	require.Eventually(t, func() bool { return p1.execs.Load() >= 1 }, waitFor, time.Millisecond)

	require.NoError(t, h.sched.Schedule(p2.Pattern))
	require.Eventually(t, func() bool { return p2.cleanups.Load() == 1 }, waitFor, time.Millisecond)
	h.waitState(t, StateWaiting)

	assert.Equal(t, int32(1), p1.cleanups.Load())
	assert.Equal(t, int32(1), p2.execs.Load(), "replacement must start from repetition 0")
	for _, c := range colorsOf(h.frames()) {
		assert.NotEqual(t, led.White, c, "end state written on interruption")
	}
	last, _ := h.sched.Leds()
	assert.True(t, last.Equal(led.Fill(numLeds, led.Green)))
}

func TestScenarioPendingCommandIsNotOverwritten(t *testing.T) {
	h := newHarness(t, Options{})

	require.NoError(t, h.sched.Pause())
	err := h.sched.Start()
	require.ErrorIs(t, err, ErrCommandQueueFull)
	assert.True(t, HasCode(err, ErrCodeCommandQueueFull))

	cmd, ok := h.sched.commands.TryReceive()
	require.True(t, ok)
	assert.Equal(t, CommandPause, cmd)
}

func TestNonInterruptablePatternRunsToCompletion(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	p1 := newTracked(pattern.Options{Repetitions: 3}, led.Red)
	p2 := newTracked(pattern.Options{Repetitions: 1}, led.Green)
	require.NoError(t, h.sched.Schedule(p1.Pattern))
	require.NoError(t, h.sched.Schedule(p2.Pattern))
	require.NoError(t, h.sched.Start())

	require.Eventually(t, func() bool { return p2.cleanups.Load() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, int32(3), p1.execs.Load())
	assert.Equal(t, []led.Color{led.Red, led.Red, led.Red, led.Green}, colorsOf(h.frames()))
}

func TestPauseResumeKeepsRepetitionCount(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	p := newGated(pattern.Options{Name: "gate"})
	require.NoError(t, h.sched.Schedule(p.Pattern))
	require.NoError(t, h.sched.Start())

	p.waitEnter(t)
	h.send(t, CommandPause)
	p.proceed <- struct{}{}

	h.waitState(t, StatePaused)
	assert.Equal(t, uint32(1), h.sched.Status().Repetition)
	assert.Equal(t, "gate", h.sched.Status().PatternName)

	h.send(t, CommandResume)
	p.waitEnter(t)
	h.waitState(t, StateRunning)
	assert.Equal(t, uint32(1), h.sched.Status().Repetition)
	assert.Zero(t, p.cleanups.Load())
}

func TestStopReleasesCurrentWithoutEndState(t *testing.T) {
	bus := events.New()
	var mu sync.Mutex
	var reasons []string
	unsub := bus.Subscribe(func(e events.PatternFinishedEvent) {
		mu.Lock()
		reasons = append(reasons, e.Reason)
		mu.Unlock()
	})
	defer unsub()

	h := newHarness(t, Options{Bus: bus})
	h.run(t)

	end := led.Fill(numLeds, led.White)
	p := newGated(pattern.Options{Repetitions: 5, EndState: &end})
	require.NoError(t, h.sched.Schedule(p.Pattern))
	require.NoError(t, h.sched.Start())

	p.waitEnter(t)
	h.send(t, CommandStop)
	p.proceed <- struct{}{}

	h.waitState(t, StateStopped)
	assert.Equal(t, int32(1), p.cleanups.Load())
	for _, c := range colorsOf(h.frames()) {
		assert.NotEqual(t, led.White, c)
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reasons) == 1
	}, waitFor, time.Millisecond)
	mu.Lock()
	assert.Equal(t, events.ReasonStopped, reasons[0])
	mu.Unlock()
}

func TestStopWhileWaiting(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	require.NoError(t, h.sched.Start())
	h.waitState(t, StateWaiting)
	h.send(t, CommandStop)
	h.waitState(t, StateStopped)
}

func TestPauseWhileWaitingThenResume(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	require.NoError(t, h.sched.Start())
	h.waitState(t, StateWaiting)
	h.send(t, CommandPause)
	h.waitState(t, StatePaused)

	p := newTracked(pattern.Options{Repetitions: 1}, led.Blue)
	require.NoError(t, h.sched.Schedule(p.Pattern))
	h.send(t, CommandResume)

	require.Eventually(t, func() bool { return p.cleanups.Load() == 1 }, waitFor, time.Millisecond)
	h.waitState(t, StateWaiting)
}

// The state machine is driven directly here, without Run, so that Starting
// can be observed before the pending command is consumed.
func TestStartingHandlesPendingCommand(t *testing.T) {
	tests := []struct {
		cmd      Command
		want     State
		cleanups int32
	}{
		{CommandPause, StatePaused, 0},
		{CommandResume, StateRunning, 0},
		{CommandStart, StateRunning, 0},
		{CommandStop, StateStopped, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			h := newHarness(t, Options{})
			s := h.sched
			ctx := context.Background()

			p := newTracked(pattern.Options{Name: "held"}, led.Red)
			s.adopt(p.Pattern)
			require.NoError(t, s.Send(tt.cmd))

			s.start(ctx)
			assert.Equal(t, StateStarting, s.State())
			assert.Same(t, p.Pattern, s.current)

			cmd, ok := s.commands.TryReceive()
			require.True(t, ok)
			s.handle(ctx, cmd)

			assert.Equal(t, tt.want, s.State())
			assert.Equal(t, tt.cleanups, p.cleanups.Load())
			if tt.want == StateStopped {
				assert.Nil(t, s.current)
			} else {
				assert.Same(t, p.Pattern, s.current)
			}
			assert.Zero(t, p.execs.Load(), "no repetition runs before the loop steps")

			s.shutdown()
			assert.Equal(t, int32(1), p.cleanups.Load(), "released exactly once")
		})
	}
}

func TestQueuedPatternWinsOverPendingCommand(t *testing.T) {
	for range 50 {
		h := newHarness(t, Options{})
		s := h.sched
		ctx := context.Background()

		p := newTracked(pattern.Options{Name: "queued"}, led.Green)
		require.NoError(t, s.Schedule(p.Pattern))
		require.NoError(t, s.Pause())

		s.start(ctx)
		require.Equal(t, StateStarting, s.State())
		require.Same(t, p.Pattern, s.current)

		cmd, ok := s.commands.TryReceive()
		require.True(t, ok)
		s.handle(ctx, cmd)
		require.Equal(t, StatePaused, s.State())
		require.Same(t, p.Pattern, s.current)

		s.shutdown()
		require.Equal(t, int32(1), p.cleanups.Load())
	}
}

func TestCommandsIgnoredInStopped(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	for _, cmd := range []Command{CommandStop, CommandPause, CommandResume, CommandReset} {
		h.send(t, cmd)
	}
	require.Eventually(t, func() bool { return h.sched.commands.Len() == 0 }, waitFor, time.Millisecond)
	assert.Equal(t, StateStopped, h.sched.State())
}

func TestScheduleQueueFull(t *testing.T) {
	h := newHarness(t, Options{QueueCapacity: 1})

	first := newTracked(pattern.Options{}, led.Red)
	second := newTracked(pattern.Options{}, led.Red)
	require.NoError(t, h.sched.Schedule(first.Pattern))

	err := h.sched.Schedule(second.Pattern)
	require.ErrorIs(t, err, ErrQueueFull)
	assert.False(t, second.Released(), "rejected pattern stays with the caller")
	assert.Equal(t, 1, h.sched.Status().QueueDepth)
}

func TestScheduleRejectsInvalid(t *testing.T) {
	h := newHarness(t, Options{})
	assert.ErrorIs(t, h.sched.Schedule(nil), ErrInvalidPattern)

	p := newTracked(pattern.Options{}, led.Red)
	p.Release()
	assert.ErrorIs(t, h.sched.Schedule(p.Pattern), ErrInvalidPattern)
}

func TestClearAll(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	current := newGated(pattern.Options{})
	require.NoError(t, h.sched.Schedule(current.Pattern))
	require.NoError(t, h.sched.Start())
	current.waitEnter(t)

	queued := []*tracked{
		newTracked(pattern.Options{}, led.Green),
		newTracked(pattern.Options{}, led.Blue),
	}
	for _, q := range queued {
		require.NoError(t, h.sched.Schedule(q.Pattern))
	}

	require.Eventually(t, func() bool { return h.sched.ClearAll() == nil }, waitFor, time.Millisecond)
	for _, q := range queued {
		assert.Equal(t, int32(1), q.cleanups.Load())
		assert.Zero(t, q.execs.Load())
	}

	current.proceed <- struct{}{}
	h.waitState(t, StateStopped)
	assert.Equal(t, int32(1), current.cleanups.Load())
	assert.Zero(t, h.sched.Status().QueueDepth)
}

func TestShutdownReleasesEverything(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	current := newGated(pattern.Options{})
	require.NoError(t, h.sched.Schedule(current.Pattern))
	require.NoError(t, h.sched.Start())
	current.waitEnter(t)

	queued := newTracked(pattern.Options{}, led.Green)
	require.NoError(t, h.sched.Schedule(queued.Pattern))

	h.shutdown()

	assert.Equal(t, int32(1), current.cleanups.Load())
	assert.Equal(t, int32(1), queued.cleanups.Load())
	assert.Equal(t, StateStopped, h.sched.State())
}

func TestSetLedWhileStopped(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	require.NoError(t, h.sched.SetLed(1, led.Red))
	got, ok := h.sched.Leds()
	require.True(t, ok)
	assert.True(t, got.Equal(led.StateOf(led.Off, led.Red, led.Off)))

	require.NoError(t, h.sched.SetLed(0, led.Blue))
	got, _ = h.sched.Leds()
	assert.True(t, got.Equal(led.StateOf(led.Blue, led.Red, led.Off)))

	assert.ErrorIs(t, h.sched.SetLed(numLeds, led.Red), ErrNoSuchLed)
	assert.ErrorIs(t, h.sched.SetLed(-1, led.Red), ErrNoSuchLed)
}

func TestSetLedsValidatesLength(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	err := h.sched.SetLeds(led.Fill(numLeds+1, led.Red))
	assert.ErrorIs(t, err, led.ErrInvalidArgument)
	_, ok := h.sched.Leds()
	assert.False(t, ok)

	require.NoError(t, h.sched.SetLeds(led.Fill(numLeds, led.Green)))
}

func TestDirectWritesBlockedWhileRunning(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	p := newGated(pattern.Options{})
	require.NoError(t, h.sched.Schedule(p.Pattern))
	require.NoError(t, h.sched.Start())
	p.waitEnter(t)
	h.waitState(t, StateRunning)

	assert.ErrorIs(t, h.sched.SetLed(0, led.Green), ErrBusy)
	assert.ErrorIs(t, h.sched.SetLeds(led.Fill(numLeds, led.Green)), ErrBusy)

	h.send(t, CommandPause)
	p.proceed <- struct{}{}
	h.waitState(t, StatePaused)

	require.NoError(t, h.sched.SetLed(2, led.Green))
	got, _ := h.sched.Leds()
	assert.True(t, got.Equal(led.StateOf(led.Red, led.Red, led.Green)))
}

func TestDirectWritesBlockedWhileWaiting(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	require.NoError(t, h.sched.Start())
	h.waitState(t, StateWaiting)
	err := h.sched.SetLed(0, led.Red)
	assert.True(t, HasCode(err, ErrCodeBusy))
}

func TestHardwareErrorsDoNotAbortPattern(t *testing.T) {
	h := newHarness(t, Options{})
	h.run(t)

	h.mem.FailNext(led.NewHwError(led.KindTimeout, "transmit", errors.New("stuck")))
	p := generate(t, 1, false, nil, led.Red, led.Green, led.Blue)
	require.NoError(t, h.sched.Schedule(p))
	require.NoError(t, h.sched.Start())

	require.Eventually(t, p.Released, waitFor, time.Millisecond)
	assert.Equal(t, []led.Color{led.Green, led.Blue}, colorsOf(h.frames()))
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand(" Pause ")
	require.NoError(t, err)
	assert.Equal(t, CommandPause, cmd)

	_, err = ParseCommand("explode")
	assert.ErrorIs(t, err, ErrInvalidCommand)
}
