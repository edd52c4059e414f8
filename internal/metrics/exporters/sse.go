package exporters

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/ledsched/internal/events"
	"github.com/smazurov/ledsched/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter periodically publishes a metrics snapshot on the event bus,
// where the SSE endpoint forwards it to clients.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewSSEExporter creates a new SSE exporter publishing once per interval.
func NewSSEExporter(eventBus EventPublisher, interval time.Duration) *SSEExporter {
	if interval <= 0 {
		interval = time.Second
	}
	return &SSEExporter{
		eventBus: eventBus,
		interval: interval,
	}
}

// Start begins the export loop. It stops when ctx is cancelled or Stop is called.
func (s *SSEExporter) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the exporter and waits for the loop to exit. Safe to call
// repeatedly and before Start.
func (s *SSEExporter) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *SSEExporter) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publish()
		}
	}
}

func (s *SSEExporter) publish() {
	snap := metrics.GetSnapshot()
	var hwErrors uint64
	for _, n := range snap.HardwareErrors {
		hwErrors += n
	}
	s.eventBus.Publish(events.MetricsSnapshotEvent{
		State:          snap.State,
		QueueDepth:     snap.QueueDepth,
		Repetitions:    snap.Repetitions,
		HardwareWrites: snap.HardwareWrites,
		HardwareErrors: hwErrors,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}
