package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/ledsched/internal/api/models"
	"github.com/smazurov/ledsched/internal/scheduler"
)

const commandClear = "clear"

func (s *Server) statusData() models.SchedulerStatusData {
	st := s.options.Scheduler.Status()
	return models.SchedulerStatusData{
		State:         string(st.State),
		PatternID:     st.PatternID,
		PatternName:   st.PatternName,
		Repetition:    st.Repetition,
		Repetitions:   st.Repetitions,
		QueueDepth:    s.options.Scheduler.QueueLen(),
		QueueCapacity: s.options.Scheduler.QueueCapacity(),
		LedCount:      s.options.Scheduler.LedCount(),
	}
}

func (s *Server) registerSchedulerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-scheduler",
		Method:      http.MethodGet,
		Path:        "/api/scheduler",
		Summary:     "Scheduler Status",
		Description: "Get the scheduler state, the pattern on display and queue depth",
		Tags:        []string{"scheduler"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.SchedulerStatusResponse, error) {
		return &models.SchedulerStatusResponse{Body: s.statusData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "send-scheduler-command",
		Method:        http.MethodPost,
		Path:          "/api/scheduler/{command}",
		Summary:       "Send Command",
		Description:   "Queue a control command. The scheduler applies it asynchronously; clear also discards every queued pattern.",
		Tags:          []string{"scheduler"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401, 409},
		Security:      withAuth(),
	}, func(_ context.Context, input *models.SchedulerCommandRequest) (*models.SchedulerCommandResponse, error) {
		if input.Command == commandClear {
			if err := s.options.Scheduler.ClearAll(); err != nil {
				return nil, toHTTPError("Failed to clear scheduler", err)
			}
			s.logger.Info("Scheduler cleared")
			return &models.SchedulerCommandResponse{
				Body: models.SchedulerCommandData{Command: commandClear, Message: "queue cleared, stop queued"},
			}, nil
		}

		cmd, err := scheduler.ParseCommand(input.Command)
		if err != nil {
			return nil, toHTTPError("Invalid command", err)
		}
		if err := s.options.Scheduler.Send(cmd); err != nil {
			return nil, toHTTPError("Failed to queue command", err)
		}
		s.logger.Debug("Command queued", "command", cmd)
		return &models.SchedulerCommandResponse{
			Body: models.SchedulerCommandData{Command: string(cmd), Message: "command queued"},
		}, nil
	})
}
