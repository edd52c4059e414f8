package indicator

import "github.com/smazurov/ledsched/internal/logging"

type noop struct {
	logger logging.Logger
}

func newNoop(logger logging.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(name string, mode Mode) error {
	if n.logger != nil {
		n.logger.Debug("Status LED not available (no-op)", "led", name, "mode", mode)
	}
	return nil
}

func (n *noop) Available() []string {
	return []string{}
}
