package indicator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/smazurov/ledsched/internal/logging"
)

const deviceTreeModel = "proc/device-tree/model"

type board struct {
	match string
	leds  map[string]string // name -> /sys/class/leds entry
}

var boards = []board{
	{match: "Raspberry Pi", leds: map[string]string{"status": "ACT", "power": "PWR"}},
	{match: "NanoPC-T6", leds: map[string]string{"status": "sys_led", "user": "usr_led"}},
	{match: "Orange Pi", leds: map[string]string{"status": "green_led", "blue": "blue_led"}},
}

// New detects the board and returns a sysfs controller for it, or a no-op
// controller when the board is unknown.
func New(logger logging.Logger) Controller {
	return detect("/", logger)
}

// detect resolves the board under root, which is "/" outside tests.
func detect(root string, logger logging.Logger) Controller {
	model := detectBoard(root)
	for _, b := range boards {
		if strings.Contains(model, b.match) {
			if logger != nil {
				logger.Info("Using sysfs status LED", "board_model", model)
			}
			return newSysfs(filepath.Join(root, sysfsLEDPath), b.leds)
		}
	}
	if logger != nil {
		logger.Info("No status LED support detected, using no-op controller", "board_model", model)
	}
	return newNoop(logger)
}

func detectBoard(root string) string {
	data, err := os.ReadFile(filepath.Join(root, deviceTreeModel))
	if err != nil {
		return "unknown"
	}
	// device tree strings are NUL terminated
	return strings.TrimRight(string(data), "\x00")
}
