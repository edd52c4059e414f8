package scheduler

import (
	"fmt"

	"github.com/smazurov/ledsched/internal/pattern"
)

// DefaultQueueCapacity is the pattern queue size used when none is configured.
const DefaultQueueCapacity = 5

// PatternQueue is a bounded FIFO of patterns awaiting display. Sends never block.
type PatternQueue struct {
	ch chan *pattern.Pattern
}

// NewPatternQueue creates a queue holding up to capacity patterns (minimum 1).
func NewPatternQueue(capacity int) *PatternQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &PatternQueue{ch: make(chan *pattern.Pattern, capacity)}
}

// TrySend enqueues p or returns ErrQueueFull. On error the caller keeps ownership of p.
func (q *PatternQueue) TrySend(p *pattern.Pattern) error {
	select {
	case q.ch <- p:
		return nil
	default:
		return newError(ErrCodeQueueFull, fmt.Sprintf("pattern queue is full (%d)", cap(q.ch)), nil)
	}
}

// TryReceive dequeues a pattern if one is waiting.
func (q *PatternQueue) TryReceive() (*pattern.Pattern, bool) {
	select {
	case p := <-q.ch:
		return p, true
	default:
		return nil, false
	}
}

// Drain removes and returns every waiting pattern.
func (q *PatternQueue) Drain() []*pattern.Pattern {
	var out []*pattern.Pattern
	for {
		p, ok := q.TryReceive()
		if !ok {
			return out
		}
		out = append(out, p)
	}
}

// Len returns the number of waiting patterns.
func (q *PatternQueue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *PatternQueue) Cap() int { return cap(q.ch) }

func (q *PatternQueue) recv() <-chan *pattern.Pattern { return q.ch }

// CommandQueue holds at most one pending command. A producer cannot
// overwrite a command the scheduler has not consumed yet.
type CommandQueue struct {
	ch chan Command
}

// NewCommandQueue creates an empty single-slot command queue.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{ch: make(chan Command, 1)}
}

// TrySend enqueues cmd or returns ErrCommandQueueFull.
func (q *CommandQueue) TrySend(cmd Command) error {
	select {
	case q.ch <- cmd:
		return nil
	default:
		return newError(ErrCodeCommandQueueFull, fmt.Sprintf("cannot send %s, previous command still pending", cmd), nil)
	}
}

// TryReceive dequeues the pending command, if any.
func (q *CommandQueue) TryReceive() (Command, bool) {
	select {
	case c := <-q.ch:
		return c, true
	default:
		return "", false
	}
}

// Len returns 1 if a command is pending.
func (q *CommandQueue) Len() int { return len(q.ch) }

func (q *CommandQueue) recv() <-chan Command { return q.ch }
