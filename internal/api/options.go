package api

import (
	"net/http"

	"github.com/smazurov/ledsched/internal/events"
	"github.com/smazurov/ledsched/internal/led"
	"github.com/smazurov/ledsched/internal/pattern"
	"github.com/smazurov/ledsched/internal/scheduler"
)

// Scheduler is the part of the scheduler the API drives.
type Scheduler interface {
	Schedule(p *pattern.Pattern) error
	Send(cmd scheduler.Command) error
	ClearAll() error
	Status() scheduler.Status
	QueueLen() int
	QueueCapacity() int
	LedCount() int
	Leds() (led.State, bool)
	SetLed(index int, c led.Color) error
	SetLeds(state led.State) error
}

// Options configures the API server.
type Options struct {
	AuthUsername string
	AuthPassword string

	Scheduler Scheduler
	Library   *pattern.Library
	EventBus  *events.Bus

	// Optional handlers mounted outside huma.
	PrometheusHandler http.Handler
	PreviewHandler    http.Handler
}
