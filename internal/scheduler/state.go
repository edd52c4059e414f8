package scheduler

import (
	"fmt"
	"strings"
)

// State is the scheduler's position in its state machine.
type State string

// Scheduler states.
const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
	StateWaiting  State = "waiting"
	StatePaused   State = "paused"
	StateUnknown  State = "unknown"
)

// Command is a control request sent to the scheduler.
type Command string

// Scheduler commands.
const (
	CommandStart  Command = "start"
	CommandStop   Command = "stop"
	CommandPause  Command = "pause"
	CommandResume Command = "resume"
	// CommandReset is accepted but not implemented; the scheduler logs it
	// and leaves its state unchanged.
	CommandReset Command = "reset"
)

// ParseCommand converts a command name to a Command.
func ParseCommand(s string) (Command, error) {
	switch c := Command(strings.ToLower(strings.TrimSpace(s))); c {
	case CommandStart, CommandStop, CommandPause, CommandResume, CommandReset:
		return c, nil
	default:
		return "", newError(ErrCodeInvalidCommand, fmt.Sprintf("unknown command %q", s), nil)
	}
}

// Status is what the scheduler publishes to its state mailbox.
type Status struct {
	State       State  `json:"state"`
	PatternID   string `json:"pattern_id,omitempty"`
	PatternName string `json:"pattern_name,omitempty"`
	Repetition  uint32 `json:"repetition"`
	Repetitions uint32 `json:"repetitions"`
	QueueDepth  int    `json:"queue_depth"`
}
