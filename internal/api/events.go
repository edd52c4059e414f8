package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/ledsched/internal/events"
)

// registerSSERoutes registers the event stream. Frames are left to the
// websocket preview; this stream carries state changes only.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time scheduler state, pattern lifecycle, hardware errors and metrics snapshots",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"scheduler-state":  events.SchedulerStateChangedEvent{},
		"pattern-started":  events.PatternStartedEvent{},
		"pattern-finished": events.PatternFinishedEvent{},
		"hardware-error":   events.HardwareErrorEvent{},
		"metrics":          events.MetricsSnapshotEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		stream := events.NewStream(32)
		events.Forward[events.SchedulerStateChangedEvent](s.options.EventBus, stream)
		events.Forward[events.PatternStartedEvent](s.options.EventBus, stream)
		events.Forward[events.PatternFinishedEvent](s.options.EventBus, stream)
		events.Forward[events.HardwareErrorEvent](s.options.EventBus, stream)
		events.Forward[events.MetricsSnapshotEvent](s.options.EventBus, stream)
		defer func() {
			stream.Close()
			if n := stream.Dropped(); n > 0 {
				s.logger.Debug("Event stream dropped events", "dropped", n)
			}
		}()

		// Clients start from the current state rather than waiting for a change.
		st := s.options.Scheduler.Status()
		if err := send.Data(events.SchedulerStateChangedEvent{
			State:     string(st.State),
			Previous:  string(st.State),
			PatternID: st.PatternID,
			Timestamp: now(),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-stream.C:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
