package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/ledsched/internal/api/models"
	"github.com/smazurov/ledsched/internal/pattern"
)

func (s *Server) registerPatternRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "schedule-pattern",
		Method:        http.MethodPost,
		Path:          "/api/patterns",
		Summary:       "Schedule Pattern",
		Description:   "Build a pattern from a definition and append it to the queue",
		Tags:          []string{"patterns"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401, 503},
		Security:      withAuth(),
	}, func(_ context.Context, input *models.PatternRequest) (*models.PatternQueuedResponse, error) {
		p, err := input.Body.Build(pattern.NewGenerator(s.options.Scheduler.LedCount()))
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid pattern", err)
		}
		return s.schedule(p)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-library",
		Method:      http.MethodGet,
		Path:        "/api/patterns/library",
		Summary:     "Pattern Library",
		Description: "List the named patterns loaded from the library file",
		Tags:        []string{"patterns"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.LibraryResponse, error) {
		defs := []pattern.Definition{}
		if s.options.Library != nil {
			defs = s.options.Library.Definitions()
		}
		return &models.LibraryResponse{
			Body: models.LibraryData{Patterns: defs, Count: len(defs)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "schedule-library-pattern",
		Method:        http.MethodPost,
		Path:          "/api/patterns/library/{name}",
		Summary:       "Play Library Pattern",
		Description:   "Build the named library pattern and append it to the queue",
		Tags:          []string{"patterns"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401, 404, 503},
		Security:      withAuth(),
	}, func(_ context.Context, input *models.LibraryPatternRequest) (*models.PatternQueuedResponse, error) {
		if s.options.Library == nil {
			return nil, huma.Error404NotFound("No pattern library loaded")
		}
		p, err := s.options.Library.Build(input.Name, s.options.Scheduler.LedCount())
		if err != nil {
			if _, ok := s.options.Library.Get(input.Name); !ok {
				return nil, huma.Error404NotFound("Pattern not found", err)
			}
			return nil, huma.Error400BadRequest("Invalid pattern", err)
		}
		return s.schedule(p)
	})
}

// schedule hands p to the scheduler. p is released here if the queue rejects it.
func (s *Server) schedule(p *pattern.Pattern) (*models.PatternQueuedResponse, error) {
	if err := s.options.Scheduler.Schedule(p); err != nil {
		p.Release()
		return nil, toHTTPError("Failed to schedule pattern", err)
	}
	s.logger.Info("Pattern scheduled", "pattern", p.Name, "pattern_id", p.ID)
	return &models.PatternQueuedResponse{
		Body: models.PatternQueuedData{
			ID:            p.ID,
			Name:          p.Name,
			Repetitions:   p.Repetitions,
			Interruptable: p.Interruptable,
			QueueDepth:    s.options.Scheduler.QueueLen(),
		},
	}, nil
}
