package indicator

import (
	"log/slog"
	"sync"

	"github.com/smazurov/ledsched/internal/events"
)

// StatusLED is the LED name the manager drives.
const StatusLED = "status"

// Manager mirrors the scheduler on the status LED: solid while running,
// blinking while starting, waiting or paused, off when stopped. A hardware
// write failure switches to heartbeat until the strip accepts a write again.
type Manager struct {
	controller Controller
	bus        *events.Bus
	logger     *slog.Logger

	mu      sync.Mutex
	state   string
	hwError bool
	current Mode
	unsubs  []func()
}

// NewManager creates a manager. Nothing happens until Start.
func NewManager(controller Controller, bus *events.Bus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		controller: controller,
		bus:        bus,
		logger:     logger,
		state:      "stopped",
	}
}

// Start subscribes to scheduler and strip events.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubs = append(m.unsubs,
		m.bus.Subscribe(func(e events.SchedulerStateChangedEvent) {
			m.update(func() { m.state = e.State })
		}),
		m.bus.Subscribe(func(events.HardwareErrorEvent) {
			m.update(func() { m.hwError = true })
		}),
		m.bus.Subscribe(func(events.LEDStateChangedEvent) {
			m.update(func() { m.hwError = false })
		}),
	)
	m.logger.Info("Status LED manager started")
}

// Stop unsubscribes and turns the LED off.
func (m *Manager) Stop() {
	m.mu.Lock()
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	m.mu.Unlock()

	if err := m.controller.Set(StatusLED, ModeOff); err != nil {
		m.logger.Warn("Failed to turn status LED off", "error", err)
	}
	m.logger.Info("Status LED manager stopped")
}

// Mode returns the mode last applied.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Controller returns the underlying controller.
func (m *Manager) Controller() Controller {
	return m.controller
}

func (m *Manager) update(change func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	change()
	mode := m.modeFor()
	if mode == m.current {
		return
	}
	if err := m.controller.Set(StatusLED, mode); err != nil {
		m.logger.Warn("Failed to set status LED", "mode", mode, "error", err)
		return
	}
	m.logger.Debug("Status LED updated", "state", m.state, "mode", mode)
	m.current = mode
}

func (m *Manager) modeFor() Mode {
	if m.hwError {
		return ModeHeartbeat
	}
	switch m.state {
	case "running":
		return ModeSolid
	case "stopped", "":
		return ModeOff
	default:
		return ModeBlink
	}
}
