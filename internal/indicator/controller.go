// Package indicator drives the board's status LED (the one soldered next to
// the power LED, not the addressable strip) from scheduler events.
package indicator

// Mode is what a status LED shows.
type Mode string

// Status LED modes.
const (
	ModeOff       Mode = "off"
	ModeSolid     Mode = "solid"
	ModeBlink     Mode = "blink"
	ModeHeartbeat Mode = "heartbeat"
)

// Controller abstracts status LED hardware across SBC boards.
type Controller interface {
	// Set puts the named LED into mode.
	Set(name string, mode Mode) error
	// Available returns the LED names this board exposes.
	Available() []string
}
