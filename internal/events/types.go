package events

// Event type constants for kelindar/event.
const (
	TypeSchedulerStateChanged uint32 = iota + 1
	TypePatternStarted
	TypePatternFinished
	TypeLEDStateChanged
	TypeHardwareError
	TypeLogEntry
	TypeMetricsSnapshot
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Reasons a pattern stops being the current pattern.
const (
	ReasonCompleted   = "completed"
	ReasonInterrupted = "interrupted"
	ReasonStopped     = "stopped"
	ReasonDiscarded   = "discarded"
)

// SchedulerStateChangedEvent is published whenever the scheduler moves to a
// different state.
type SchedulerStateChangedEvent struct {
	State     string `json:"state" example:"running" doc:"New scheduler state"`
	Previous  string `json:"previous" example:"waiting" doc:"Previous scheduler state"`
	PatternID string `json:"pattern_id,omitempty" doc:"Pattern being displayed, if any"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SchedulerStateChangedEvent.
func (e SchedulerStateChangedEvent) Type() uint32 { return TypeSchedulerStateChanged }

// PatternStartedEvent is published when the scheduler adopts a pattern.
type PatternStartedEvent struct {
	PatternID     string `json:"pattern_id" doc:"Pattern identifier"`
	Name          string `json:"name" example:"rainbow" doc:"Pattern name"`
	Interruptable bool   `json:"interruptable" doc:"Whether a queued pattern may replace it"`
	Repetitions   uint32 `json:"repetitions" example:"3" doc:"Configured repetitions, 0 means forever"`
	Timestamp     string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PatternStartedEvent.
func (e PatternStartedEvent) Type() uint32 { return TypePatternStarted }

// PatternFinishedEvent is published once per pattern when its data is
// released, whatever the reason.
type PatternFinishedEvent struct {
	PatternID   string `json:"pattern_id" doc:"Pattern identifier"`
	Name        string `json:"name" example:"rainbow" doc:"Pattern name"`
	Reason      string `json:"reason" example:"completed" enum:"completed,interrupted,stopped,discarded" doc:"Why the pattern ended"`
	Repetitions uint32 `json:"repetitions" example:"3" doc:"Repetitions actually executed"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PatternFinishedEvent.
func (e PatternFinishedEvent) Type() uint32 { return TypePatternFinished }

// LEDStateChangedEvent carries a state that was successfully written to the strip.
type LEDStateChangedEvent struct {
	Seq       uint64 `json:"seq" doc:"Strip write sequence number"`
	Count     int    `json:"count" example:"8" doc:"Number of LEDs"`
	Frame     []byte `json:"frame" doc:"Packed RGB bytes, three per LED"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for LEDStateChangedEvent.
func (e LEDStateChangedEvent) Type() uint32 { return TypeLEDStateChanged }

// HardwareErrorEvent is published when a write to the strip fails.
type HardwareErrorEvent struct {
	Kind      string `json:"kind" example:"TIMEOUT" doc:"Hardware error kind"`
	Error     string `json:"error" doc:"Error message"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for HardwareErrorEvent.
func (e HardwareErrorEvent) Type() uint32 { return TypeHardwareError }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"scheduler" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// MetricsSnapshotEvent is a periodic summary of scheduler metrics for SSE clients.
type MetricsSnapshotEvent struct {
	State          string `json:"state" example:"running" doc:"Current scheduler state"`
	QueueDepth     int    `json:"queue_depth" example:"2" doc:"Patterns waiting in the queue"`
	Repetitions    uint64 `json:"repetitions" doc:"Repetitions executed since start"`
	HardwareWrites uint64 `json:"hardware_writes" doc:"Successful strip writes since start"`
	HardwareErrors uint64 `json:"hardware_errors" doc:"Failed strip writes since start"`
	Timestamp      string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Snapshot timestamp"`
}

// Type returns the event type identifier for MetricsSnapshotEvent.
func (e MetricsSnapshotEvent) Type() uint32 { return TypeMetricsSnapshot }
