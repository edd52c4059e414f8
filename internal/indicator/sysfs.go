package indicator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	sysfsLEDPath = "sys/class/leds"
	blinkDelayMs = "250"
)

// sysfs drives LEDs through the kernel LED class.
type sysfs struct {
	dir  string
	leds map[string]string
}

func newSysfs(dir string, leds map[string]string) *sysfs {
	return &sysfs{dir: dir, leds: leds}
}

func (s *sysfs) Set(name string, mode Mode) error {
	entry, ok := s.leds[name]
	if !ok {
		return fmt.Errorf("status LED %q not supported on this board", name)
	}
	path := filepath.Join(s.dir, entry)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("status LED %q: %w", name, err)
	}

	var writes [][2]string
	switch mode {
	case ModeOff:
		writes = [][2]string{{"trigger", "none"}, {"brightness", "0"}}
	case ModeSolid:
		writes = [][2]string{{"trigger", "none"}, {"brightness", "1"}}
	case ModeBlink:
		writes = [][2]string{{"trigger", "timer"}, {"delay_on", blinkDelayMs}, {"delay_off", blinkDelayMs}}
	case ModeHeartbeat:
		writes = [][2]string{{"trigger", "heartbeat"}}
	default:
		return fmt.Errorf("unknown status LED mode %q", mode)
	}

	for _, w := range writes {
		if err := os.WriteFile(filepath.Join(path, w[0]), []byte(w[1]), 0o644); err != nil {
			return fmt.Errorf("status LED %q: write %s: %w", name, w[0], err)
		}
	}
	return nil
}

func (s *sysfs) Available() []string {
	names := make([]string, 0, len(s.leds))
	for name := range s.leds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
