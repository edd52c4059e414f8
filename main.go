package main

import (
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/ledsched/cmd"
	"github.com/smazurov/ledsched/internal/config"
	"github.com/smazurov/ledsched/internal/led"
	"github.com/smazurov/ledsched/internal/logging"
	"github.com/smazurov/ledsched/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// LED strip settings
	LedsCount          int    `help:"Number of LEDs on the strip" default:"60" toml:"leds.count" env:"LEDS_COUNT"`
	LedsDriver         string `help:"LED driver (spi, sim, noop)" default:"spi" toml:"leds.driver" env:"LEDS_DRIVER"`
	LedsSPIDevice      string `help:"SPI port name, empty for the first one found" default:"" toml:"leds.spi_device" env:"LEDS_SPI_DEVICE"`
	LedsSPIFreqKhz     int    `help:"SPI clock in kHz" default:"2500" toml:"leds.spi_freq_khz" env:"LEDS_SPI_FREQ_KHZ"`
	LedsWriteTimeoutMs int    `help:"Strip write timeout in milliseconds" default:"100" toml:"leds.write_timeout_ms" env:"LEDS_WRITE_TIMEOUT_MS"`

	// Scheduler settings
	SchedulerQueueCapacity int `help:"Pattern queue capacity" default:"5" toml:"scheduler.queue_capacity" env:"SCHEDULER_QUEUE_CAPACITY"`

	// Pattern library settings
	PatternsLibraryFile string `help:"Pattern library file (TOML or YAML)" default:"patterns.toml" toml:"patterns.library_file" env:"PATTERNS_LIBRARY_FILE"`
	PatternsWatch       bool   `help:"Reload the pattern library when the file changes" default:"true" toml:"patterns.watch" env:"PATTERNS_WATCH"`

	// Auth settings
	AuthUsername string `help:"Basic auth username, empty disables auth" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Features settings
	FeaturesStatusLed bool `help:"Mirror scheduler state on the board status LED" default:"false" toml:"features.status_led" env:"FEATURES_STATUS_LED"`
	FeaturesPreview   bool `help:"Serve the live strip preview" default:"true" toml:"features.preview" env:"FEATURES_PREVIEW"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingScheduler string `help:"Scheduler logging level" default:"info" toml:"logging.scheduler" env:"LOGGING_SCHEDULER"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingLed       string `help:"LED driver logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
}

func (o *Options) driverConfig() led.DriverConfig {
	return led.DriverConfig{
		Kind:         o.LedsDriver,
		Count:        o.LedsCount,
		SPIDevice:    o.LedsSPIDevice,
		SPIFreqKHz:   o.LedsSPIFreqKhz,
		WriteTimeout: time.Duration(o.LedsWriteTimeoutMs) * time.Millisecond,
	}
}

func main() {
	var settings cmd.Settings
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"scheduler": opts.LoggingScheduler,
				"api":       opts.LoggingAPI,
				"http":      opts.LoggingAPI,
				"led":       opts.LoggingLed,
			},
		})

		settings = cmd.Settings{
			LibraryFile:   opts.PatternsLibraryFile,
			QueueCapacity: opts.SchedulerQueueCapacity,
			Driver:        opts.driverConfig(),
		}

		// Subcommands run from the same parsed options but never start the service.
		svc := newService(opts)
		hooks.OnStart(svc.start)
		hooks.OnStop(svc.stop)
	})

	cli.Root().Use = "ledsched"
	cli.Root().Short = "LED pattern scheduling service"
	cli.Root().Version = version.String()

	current := func() cmd.Settings { return settings }
	cli.Root().AddCommand(cmd.NewPlayCmd(current))
	cli.Root().AddCommand(cmd.NewPatternsCmd(current))

	// Run the CLI
	cli.Run()
}
