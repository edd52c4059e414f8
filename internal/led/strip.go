package led

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/ledsched/internal/events"
	"github.com/smazurov/ledsched/internal/mailbox"
	"github.com/smazurov/ledsched/internal/metrics"
)

// Sink is the hardware write used by pattern executors.
type Sink interface {
	Write(state State) error
}

// Strip is the Sink for a physical strip. It serializes transmissions and,
// only after a successful one, publishes the state to its LED mailbox.
type Strip struct {
	mu     sync.Mutex
	driver Driver
	count  int
	leds   *mailbox.Mailbox[State]
	bus    *events.Bus
	logger *slog.Logger
}

// NewStrip wraps driver for a strip of count LEDs. bus may be nil.
func NewStrip(driver Driver, count int, bus *events.Bus, logger *slog.Logger) *Strip {
	if logger == nil {
		logger = slog.Default()
	}
	return &Strip{
		driver: driver,
		count:  count,
		leds:   mailbox.New[State](),
		bus:    bus,
		logger: logger,
	}
}

// Write transmits state and blocks until the driver has finished.
func (s *Strip) Write(state State) error {
	if state.Len() != s.count {
		err := NewHwError(KindInvalidArgument, "write",
			fmt.Errorf("state has %d leds, strip has %d", state.Len(), s.count))
		s.recordError(err)
		return err
	}

	s.mu.Lock()
	start := time.Now()
	err := s.driver.Transmit(state)
	took := time.Since(start)
	s.mu.Unlock()

	if err != nil {
		var hw *HwError
		if !errors.As(err, &hw) {
			err = NewHwError(KindGeneric, "write", err)
		}
		s.recordError(err)
		return err
	}

	metrics.RecordHardwareWrite(s.driver.String(), took)
	seq := s.leds.Store(state)
	s.bus.Publish(events.LEDStateChangedEvent{
		Seq:       seq,
		Count:     state.Len(),
		Frame:     state.Bytes(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	return nil
}

func (s *Strip) recordError(err error) {
	kind := KindOf(err)
	metrics.RecordHardwareError(string(kind))
	s.logger.Debug("LED write failed", "kind", kind, "error", err)
	s.bus.Publish(events.HardwareErrorEvent{
		Kind:      string(kind),
		Error:     err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Last returns the most recently written state. ok is false before the
// first successful write.
func (s *Strip) Last() (State, bool) {
	return s.leds.Load()
}

// LastFrame is Last together with the write sequence number of that state.
// Sequence numbers start at 1; ok is false before the first successful write.
func (s *Strip) LastFrame() (State, uint64, bool) {
	state, seq := s.leds.LoadVersion()
	return state, seq, seq > 0
}

// Count returns the number of LEDs on the strip.
func (s *Strip) Count() int {
	return s.count
}

// DriverName identifies the driver behind the strip.
func (s *Strip) DriverName() string {
	return s.driver.String()
}

// Close releases the driver.
func (s *Strip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver.Close()
}
