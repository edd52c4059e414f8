package events

import (
	"sync/atomic"

	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// A nil *Bus is valid and drops every event, so components can be built
// without one in tests.
type Bus struct {
	dispatcher *event.Dispatcher
	published  atomic.Uint64
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(SchedulerStateChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	b.published.Add(1)

	switch e := ev.(type) {
	case SchedulerStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case PatternStartedEvent:
		event.Publish(b.dispatcher, e)
	case PatternFinishedEvent:
		event.Publish(b.dispatcher, e)
	case LEDStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case HardwareErrorEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	case MetricsSnapshotEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type in its signature and
// returns the unsubscribe function. Unknown handler types are ignored.
// Usage: unsub := bus.Subscribe(func(e PatternFinishedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	if b == nil {
		return func() {}
	}

	switch h := handler.(type) {
	case func(SchedulerStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PatternStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PatternFinishedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LEDStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(HardwareErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MetricsSnapshotEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// Published returns the number of events published so far.
func (b *Bus) Published() uint64 {
	if b == nil {
		return 0
	}
	return b.published.Load()
}
