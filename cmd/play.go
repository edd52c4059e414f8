package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smazurov/ledsched/internal/events"
	"github.com/smazurov/ledsched/internal/led"
	"github.com/smazurov/ledsched/internal/logging"
	"github.com/smazurov/ledsched/internal/pattern"
	"github.com/smazurov/ledsched/internal/scheduler"
)

// NewPlayCmd creates the play command.
func NewPlayCmd(settings SettingsFunc) *cobra.Command {
	var file string
	var repetitions uint32

	cmd := &cobra.Command{
		Use:   "play [pattern-name]",
		Short: "Play a library pattern on the strip",
		Long: `Loads the pattern library, builds the named pattern and runs it on the configured driver ` +
			`until it completes or the command is interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg := settings()
			if file != "" {
				cfg.LibraryFile = file
			}
			var override *uint32
			if c.Flags().Changed("repetitions") {
				override = &repetitions
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return play(ctx, cfg, args[0], override)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Pattern library file (defaults to patterns.library_file)")
	cmd.Flags().Uint32VarP(&repetitions, "repetitions", "n", 0, "Override the pattern's repetitions, 0 repeats until interrupted")
	return cmd
}

func play(ctx context.Context, cfg Settings, name string, repetitions *uint32) error {
	logger := logging.GetLogger("play").With("pattern", name)

	lib, err := pattern.LoadLibrary(cfg.LibraryFile)
	if err != nil {
		return err
	}
	def, ok := lib.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", pattern.ErrUnknownPattern, name)
	}
	if repetitions != nil {
		def.Repetitions = *repetitions
	}

	driver, err := led.NewDriver(cfg.Driver, logging.GetLogger("led"))
	if err != nil {
		return err
	}
	bus := events.New()
	strip := led.NewStrip(driver, cfg.Driver.Count, bus, logging.GetLogger("led"))
	defer strip.Close()

	p, err := def.Build(pattern.NewGenerator(cfg.Driver.Count))
	if err != nil {
		return err
	}

	sched := scheduler.New(strip, scheduler.Options{QueueCapacity: cfg.QueueCapacity, Bus: bus})
	if err := sched.Schedule(p); err != nil {
		p.Release()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	finished := make(chan string, 1)
	unsub := bus.Subscribe(func(e events.PatternFinishedEvent) {
		if e.PatternID == p.ID {
			select {
			case finished <- e.Reason:
			default:
			}
		}
	})
	defer unsub()

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()
	if err := sched.Start(); err != nil {
		cancel()
		<-done
		return err
	}
	logger.Info("Playing", "repetitions", def.Repetitions, "driver", strip.DriverName())

	select {
	case reason := <-finished:
		logger.Info("Pattern finished", "reason", reason)
	case <-ctx.Done():
		logger.Info("Interrupted")
	}
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
