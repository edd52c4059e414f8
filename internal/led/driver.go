package led

import (
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/ledsched/internal/logging"
)

// Driver performs the timing-critical transmission of a state to the strip.
// Transmit blocks until the transfer has completed.
type Driver interface {
	Transmit(state State) error
	Close() error
	String() string
}

// Driver kinds accepted by NewDriver.
const (
	DriverSPI  = "spi"
	DriverSim  = "sim"
	DriverNoop = "noop"
)

// DriverConfig selects and configures a driver.
type DriverConfig struct {
	Kind         string
	Count        int
	SPIDevice    string
	SPIFreqKHz   int
	WriteTimeout time.Duration
}

// NewDriver creates the configured driver. If the SPI bus cannot be opened
// it falls back to the in-memory simulator so the service still runs on
// development machines.
func NewDriver(cfg DriverConfig, logger logging.Logger) (Driver, error) {
	if cfg.Count <= 0 {
		return nil, NewHwError(KindInvalidArgument, "open", fmt.Errorf("led count must be positive, got %d", cfg.Count))
	}

	switch cfg.Kind {
	case DriverSPI:
		d, err := OpenSPI(SPIConfig{
			Device:       cfg.SPIDevice,
			Count:        cfg.Count,
			FreqKHz:      cfg.SPIFreqKHz,
			WriteTimeout: cfg.WriteTimeout,
		})
		if err != nil {
			if logger != nil {
				logger.Warn("SPI LED driver unavailable, using simulator", "device", cfg.SPIDevice, "error", err)
			}
			return NewMemory(cfg.Count), nil
		}
		if logger != nil {
			logger.Info("Using SPI LED driver", "device", cfg.SPIDevice, "count", cfg.Count)
		}
		return d, nil
	case DriverSim, "":
		return NewMemory(cfg.Count), nil
	case DriverNoop:
		return newNoop(cfg.Count, logger), nil
	default:
		return nil, NewHwError(KindInvalidArgument, "open", fmt.Errorf("unknown driver %q", cfg.Kind))
	}
}

// Memory records every transmitted state. It backs the simulator and tests.
type Memory struct {
	mu     sync.Mutex
	count  int
	frames []State
	fail   []error
	closed bool
}

// NewMemory creates a recording driver for count LEDs.
func NewMemory(count int) *Memory {
	return &Memory{count: count}
}

// Transmit records state, or returns the next queued failure.
func (m *Memory) Transmit(state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return NewHwError(KindDriverNotInstalled, "transmit", nil)
	}
	if state.Len() != m.count {
		return NewHwError(KindInvalidArgument, "transmit",
			fmt.Errorf("state has %d leds, strip has %d", state.Len(), m.count))
	}
	if len(m.fail) > 0 {
		err := m.fail[0]
		m.fail = m.fail[1:]
		if err != nil {
			return err
		}
	}
	m.frames = append(m.frames, state)
	return nil
}

// FailNext queues errors returned by the following transmissions, in order.
// A nil entry lets that transmission succeed.
func (m *Memory) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = append(m.fail, errs...)
}

// Frames returns every recorded state.
func (m *Memory) Frames() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, len(m.frames))
	copy(out, m.frames)
	return out
}

// FrameCount returns the number of recorded states.
func (m *Memory) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// Close marks the driver as uninstalled.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) String() string {
	return "sim"
}

// noop accepts and discards every state.
type noop struct {
	count  int
	logger logging.Logger
}

func newNoop(count int, logger logging.Logger) *noop {
	return &noop{count: count, logger: logger}
}

func (n *noop) Transmit(state State) error {
	if state.Len() != n.count {
		return NewHwError(KindInvalidArgument, "transmit",
			fmt.Errorf("state has %d leds, strip has %d", state.Len(), n.count))
	}
	if n.logger != nil {
		n.logger.Debug("LED output not available (no-op)", "state", state.String())
	}
	return nil
}

func (n *noop) Close() error {
	return nil
}

func (n *noop) String() string {
	return "noop"
}
