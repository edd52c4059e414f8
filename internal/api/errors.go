package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/ledsched/internal/led"
	"github.com/smazurov/ledsched/internal/pattern"
	"github.com/smazurov/ledsched/internal/scheduler"
)

// toHTTPError maps scheduler, pattern and hardware errors onto status codes.
func toHTTPError(msg string, err error) error {
	var hw *led.HwError
	switch {
	case err == nil:
		return nil
	case scheduler.HasCode(err, scheduler.ErrCodeQueueFull):
		return huma.Error503ServiceUnavailable(msg, err)
	case scheduler.HasCode(err, scheduler.ErrCodeCommandQueueFull),
		scheduler.HasCode(err, scheduler.ErrCodeBusy):
		return huma.Error409Conflict(msg, err)
	case scheduler.HasCode(err, scheduler.ErrCodeNoSuchLed),
		errors.Is(err, pattern.ErrUnknownPattern):
		return huma.Error404NotFound(msg, err)
	case scheduler.HasCode(err, scheduler.ErrCodeInvalidCommand),
		scheduler.HasCode(err, scheduler.ErrCodeInvalidPattern),
		scheduler.HasCode(err, scheduler.ErrCodeNotImplemented):
		return huma.Error400BadRequest(msg, err)
	case errors.As(err, &hw):
		if hw.Kind == led.KindInvalidArgument {
			return huma.Error400BadRequest(msg, err)
		}
		return huma.Error502BadGateway(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
