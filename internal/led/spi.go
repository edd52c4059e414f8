package led

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

const (
	defaultSPIFreqKHz   = 2500
	defaultWriteTimeout = 100 * time.Millisecond
)

// SPIConfig configures a WS2812-class strip driven through an SPI bus.
type SPIConfig struct {
	Device       string
	Count        int
	FreqKHz      int
	WriteTimeout time.Duration
}

// SPI drives NRZ LEDs (WS2812b and friends) by encoding the bit timing onto
// the SPI MOSI line with nrzled.
type SPI struct {
	mu      sync.Mutex
	port    spi.PortCloser
	dev     *nrzled.Dev
	count   int
	timeout time.Duration
	busy    bool
}

// OpenSPI initializes the host drivers and opens the SPI port.
// An empty device selects the first port found.
func OpenSPI(cfg SPIConfig) (*SPI, error) {
	if _, err := host.Init(); err != nil {
		return nil, NewHwError(KindDriverNotInstalled, "open", err)
	}
	port, err := spireg.Open(cfg.Device)
	if err != nil {
		return nil, NewHwError(KindDriverNotInstalled, "open", err)
	}
	d, err := NewSPIFromPort(port, cfg)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return d, nil
}

// NewSPIFromPort wraps an already opened port.
func NewSPIFromPort(port spi.PortCloser, cfg SPIConfig) (*SPI, error) {
	if cfg.Count <= 0 {
		return nil, NewHwError(KindInvalidArgument, "open", fmt.Errorf("led count must be positive, got %d", cfg.Count))
	}
	if cfg.FreqKHz <= 0 {
		cfg.FreqKHz = defaultSPIFreqKHz
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: cfg.Count,
		Channels:  3,
		Freq:      physic.Frequency(cfg.FreqKHz) * physic.KiloHertz,
	})
	if err != nil {
		return nil, NewHwError(KindGeneric, "open", err)
	}

	return &SPI{
		port:    port,
		dev:     dev,
		count:   cfg.Count,
		timeout: cfg.WriteTimeout,
	}, nil
}

// Transmit encodes state and blocks until the SPI transfer completes or the
// write timeout elapses. After a timeout the driver reports busy until the
// stuck transfer returns.
func (s *SPI) Transmit(state State) error {
	s.mu.Lock()
	if s.dev == nil {
		s.mu.Unlock()
		return NewHwError(KindDriverNotInstalled, "transmit", nil)
	}
	if s.busy {
		s.mu.Unlock()
		return NewHwError(KindTimeout, "transmit", errors.New("previous transfer still in progress"))
	}
	if state.Len() != s.count {
		s.mu.Unlock()
		return NewHwError(KindInvalidArgument, "transmit",
			fmt.Errorf("state has %d leds, strip has %d", state.Len(), s.count))
	}
	s.busy = true
	dev := s.dev
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := dev.Write(state.Bytes())
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
		done <- err
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return NewHwError(KindGeneric, "transmit", err)
		}
		return nil
	case <-timer.C:
		return NewHwError(KindTimeout, "transmit", fmt.Errorf("no completion after %s", s.timeout))
	}
}

// Close blanks the strip and releases the port.
func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return nil
	}
	haltErr := s.dev.Halt()
	closeErr := s.port.Close()
	s.dev = nil
	return errors.Join(haltErr, closeErr)
}

func (s *SPI) String() string {
	return "spi:" + s.port.String()
}
