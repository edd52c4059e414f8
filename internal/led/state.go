package led

import (
	"slices"
	"strings"
)

// State is the color of every LED on a strip. It behaves as a value: every
// method that changes it returns a new State and accessors return copies.
type State struct {
	colors []Color
}

// NewState returns n LEDs, all off.
func NewState(n int) State {
	if n < 0 {
		n = 0
	}
	return State{colors: make([]Color, n)}
}

// Fill returns n LEDs set to c.
func Fill(n int, c Color) State {
	s := NewState(n)
	for i := range s.colors {
		s.colors[i] = c
	}
	return s
}

// StateOf builds a state from explicit colors.
func StateOf(colors ...Color) State {
	return State{colors: slices.Clone(colors)}
}

// Len returns the number of LEDs.
func (s State) Len() int {
	return len(s.colors)
}

// At returns the color of LED i. ok is false when i is out of range.
func (s State) At(i int) (Color, bool) {
	if i < 0 || i >= len(s.colors) {
		return Color{}, false
	}
	return s.colors[i], true
}

// With returns a copy of s with LED i set to c. Out of range indexes
// return an unchanged copy.
func (s State) With(i int, c Color) State {
	out := State{colors: slices.Clone(s.colors)}
	if i >= 0 && i < len(out.colors) {
		out.colors[i] = c
	}
	return out
}

// Colors returns a copy of the per-LED colors.
func (s State) Colors() []Color {
	return slices.Clone(s.colors)
}

// Bytes packs the state as consecutive R, G, B bytes.
func (s State) Bytes() []byte {
	buf := make([]byte, 0, len(s.colors)*3)
	for _, c := range s.colors {
		buf = append(buf, c.R, c.G, c.B)
	}
	return buf
}

// Equal reports whether both states hold the same colors.
func (s State) Equal(other State) bool {
	return slices.Equal(s.colors, other.colors)
}

func (s State) String() string {
	parts := make([]string, len(s.colors))
	for i, c := range s.colors {
		parts[i] = c.Hex()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
