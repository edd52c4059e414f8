package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/ledsched/internal/api/models"
	"github.com/smazurov/ledsched/internal/pattern"
)

// registerLEDRoutes registers direct LED control. Writes are only accepted
// while the scheduler is paused or stopped.
func (s *Server) registerLEDRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-leds",
		Method:      http.MethodGet,
		Path:        "/api/leds",
		Summary:     "Get LEDs",
		Description: "Get the last state written to the strip",
		Tags:        []string{"leds"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.LedsResponse, error) {
		return &models.LedsResponse{Body: s.ledsData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-leds",
		Method:      http.MethodPut,
		Path:        "/api/leds",
		Summary:     "Set LEDs",
		Description: "Write the whole strip. A single color fills every LED.",
		Tags:        []string{"leds"},
		Errors:      []int{400, 401, 409, 502},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.SetLedsRequest) (*models.LedsResponse, error) {
		state, err := pattern.ParseState(input.Body.Colors, s.options.Scheduler.LedCount())
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid colors", err)
		}
		if err := s.options.Scheduler.SetLeds(state); err != nil {
			return nil, toHTTPError("Failed to set LEDs", err)
		}
		return &models.LedsResponse{Body: s.ledsData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-led",
		Method:      http.MethodPut,
		Path:        "/api/leds/{index}",
		Summary:     "Set LED",
		Description: "Write a single LED. Other LEDs keep their last color.",
		Tags:        []string{"leds"},
		Errors:      []int{400, 401, 404, 409, 502},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.SetLedRequest) (*models.LedsResponse, error) {
		c, err := pattern.ParseColor(input.Body.Color)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid color", err)
		}
		if err := s.options.Scheduler.SetLed(input.Index, c); err != nil {
			return nil, toHTTPError("Failed to set LED", err)
		}
		return &models.LedsResponse{Body: s.ledsData()}, nil
	})
}

func (s *Server) ledsData() models.LedsData {
	data := models.LedsData{
		Colors: []string{},
		Count:  s.options.Scheduler.LedCount(),
	}
	if state, ok := s.options.Scheduler.Leds(); ok {
		for _, c := range state.Colors() {
			data.Colors = append(data.Colors, c.Hex())
		}
	}
	return data
}
