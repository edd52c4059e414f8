package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/smazurov/ledsched/internal/api"
	"github.com/smazurov/ledsched/internal/config"
	"github.com/smazurov/ledsched/internal/events"
	"github.com/smazurov/ledsched/internal/indicator"
	"github.com/smazurov/ledsched/internal/led"
	"github.com/smazurov/ledsched/internal/logging"
	"github.com/smazurov/ledsched/internal/metrics/exporters"
	"github.com/smazurov/ledsched/internal/pattern"
	"github.com/smazurov/ledsched/internal/preview"
	"github.com/smazurov/ledsched/internal/scheduler"
)

const metricsInterval = 2 * time.Second

// service owns every long-running component of the daemon.
type service struct {
	opts   *Options
	logger logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	strip     *led.Strip
	server    *api.Server
	watcher   *config.Watcher[*pattern.Library]
	hub       *preview.Hub
	indicator *indicator.Manager
	exporter  *exporters.SSEExporter
}

func newService(opts *Options) *service {
	return &service{opts: opts, logger: logging.GetLogger("main")}
}

// start wires everything and blocks serving HTTP until stop is called.
func (s *service) start() {
	opts := s.opts
	s.ctx, s.cancel = context.WithCancel(context.Background())

	eventBus := events.New()
	logging.SetLogCallback(func(entry logging.LogEntry) {
		eventBus.Publish(api.LogEvent(entry))
	})

	driver, err := led.NewDriver(opts.driverConfig(), logging.GetLogger("led"))
	if err != nil {
		s.logger.Error("Failed to create LED driver", "error", err)
		os.Exit(1)
	}
	s.strip = led.NewStrip(driver, opts.LedsCount, eventBus, logging.GetLogger("led"))

	sched := scheduler.New(s.strip, scheduler.Options{
		QueueCapacity: opts.SchedulerQueueCapacity,
		Bus:           eventBus,
	})

	library := s.loadLibrary()

	apiOpts := &api.Options{
		AuthUsername:      opts.AuthUsername,
		AuthPassword:      opts.AuthPassword,
		Scheduler:         sched,
		Library:           library,
		EventBus:          eventBus,
		PrometheusHandler: exporters.HTTPHandler(),
	}

	if opts.FeaturesPreview {
		s.hub = preview.NewHub(s.strip, eventBus, logging.GetLogger("preview"))
		s.hub.Start()
		apiOpts.PreviewHandler = s.hub
	}

	if opts.FeaturesStatusLed {
		s.logger.Info("Status LED enabled, initializing")
		controller := indicator.New(logging.GetLogger("indicator"))
		s.indicator = indicator.NewManager(controller, eventBus, logging.GetLogger("indicator"))
		s.indicator.Start()
	}

	s.exporter = exporters.NewSSEExporter(eventBus, metricsInterval)
	s.exporter.Start(s.ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if runErr := sched.Run(s.ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			s.logger.Error("Scheduler exited", "error", runErr)
		}
	}()

	if opts.PatternsWatch {
		s.watchLibrary(library)
	}

	s.server = api.NewServer(apiOpts)
	if startErr := s.server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", "error", startErr)
		os.Exit(1)
	}
}

// loadLibrary reads the pattern library. A missing or broken file leaves an
// empty library so the API still serves ad-hoc patterns.
func (s *service) loadLibrary() *pattern.Library {
	empty, _ := pattern.NewLibrary()
	path := s.opts.PatternsLibraryFile
	if path == "" {
		return empty
	}
	lib, err := pattern.LoadLibrary(path)
	if err != nil {
		s.logger.Warn("Failed to load pattern library", "path", path, "error", err)
		return empty
	}
	if err := lib.Validate(s.opts.LedsCount); err != nil {
		s.logger.Warn("Pattern library has invalid entries", "path", path, "error", err)
	}
	s.logger.Info("Pattern library loaded", "path", path, "patterns", len(lib.Names()))
	return lib
}

func (s *service) watchLibrary(library *pattern.Library) {
	path := s.opts.PatternsLibraryFile
	if path == "" {
		return
	}
	s.watcher = config.NewWatcher(path, pattern.LoadLibrary, logging.GetLogger("config"),
		config.WithErrorHandler[*pattern.Library](func(err error) {
			s.logger.Warn("Pattern library reload failed, keeping previous", "path", path, "error", err)
		}))
	s.watcher.OnReload(func(lib *pattern.Library) {
		library.Replace(lib)
		s.logger.Info("Pattern library reloaded", "path", path, "patterns", len(lib.Names()))
	})
	if err := s.watcher.Start(s.ctx); err != nil {
		s.logger.Warn("Failed to watch pattern library", "path", path, "error", err)
		s.watcher = nil
	}
}

func (s *service) stop() {
	s.logger.Info("Shutting down")
	if s.server != nil {
		if stopErr := s.server.Stop(); stopErr != nil {
			s.logger.Error("Error stopping HTTP server", "error", stopErr)
		}
	}
	if s.watcher != nil {
		_ = s.watcher.Stop()
	}
	if s.exporter != nil {
		s.exporter.Stop()
	}
	if s.hub != nil {
		s.hub.Stop()
	}

	// The scheduler releases every pattern before Run returns.
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	if s.indicator != nil {
		s.indicator.Stop()
	}
	if s.strip != nil {
		if err := s.strip.Close(); err != nil {
			s.logger.Warn("Error closing LED driver", "error", err)
		}
	}
	logging.SetLogCallback(nil)
}
