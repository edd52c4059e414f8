package pattern

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/ledsched/internal/led"
)

// Effects that expand into steps at build time.
const (
	EffectRainbow = "rainbow"
	EffectChase   = "chase"
	EffectBreathe = "breathe"
	EffectBlink   = "blink"
)

const defaultEffectFrames = 12

// StepDefinition is a step as written in a library file or API request.
// A single color fills the whole strip.
type StepDefinition struct {
	Colors   []string `json:"colors" toml:"colors" yaml:"colors" minItems:"1" doc:"Per-LED colors (#rrggbb or hsv(h,s,v)); one color fills the strip"`
	Duration string   `json:"duration" toml:"duration" yaml:"duration" example:"100ms" doc:"How long the state is shown"`
}

// Definition describes a pattern declaratively, either as explicit steps or
// as a named effect.
type Definition struct {
	Name          string           `json:"name,omitempty" toml:"name" yaml:"name" example:"rgb" doc:"Pattern name"`
	Repetitions   uint32           `json:"repetitions,omitempty" toml:"repetitions" yaml:"repetitions" doc:"Number of repetitions, 0 repeats forever"`
	Interruptable bool             `json:"interruptable,omitempty" toml:"interruptable" yaml:"interruptable" doc:"Allow a queued pattern to replace this one between repetitions"`
	EndState      []string         `json:"end_state,omitempty" toml:"end_state" yaml:"end_state" doc:"State shown after the last repetition"`
	Effect        string           `json:"effect,omitempty" toml:"effect" yaml:"effect" enum:"rainbow,chase,breathe,blink" doc:"Generated effect instead of explicit steps"`
	Color         string           `json:"color,omitempty" toml:"color" yaml:"color" doc:"Effect color"`
	Frames        int              `json:"frames,omitempty" toml:"frames" yaml:"frames" maximum:"4096" doc:"Effect frames per repetition"`
	FrameDuration string           `json:"frame_duration,omitempty" toml:"frame_duration" yaml:"frame_duration" example:"50ms" doc:"Effect frame duration"`
	Steps         []StepDefinition `json:"steps,omitempty" toml:"steps" yaml:"steps" maxItems:"4096" doc:"Explicit steps"`
}

// Build feeds the definition into g and generates the pattern.
func (d Definition) Build(g *Generator) (*Pattern, error) {
	g.Reset()
	g.SetName(d.Name)
	g.SetRepetitions(d.Repetitions)
	g.SetInterruptable(d.Interruptable)

	if err := d.addSteps(g); err != nil {
		g.Reset()
		return nil, fmt.Errorf("pattern %q: %w", d.Name, err)
	}
	if len(d.EndState) > 0 {
		end, err := ParseState(d.EndState, g.ledCount)
		if err != nil {
			g.Reset()
			return nil, fmt.Errorf("pattern %q end state: %w", d.Name, err)
		}
		if err := g.AddEndState(end); err != nil {
			g.Reset()
			return nil, fmt.Errorf("pattern %q end state: %w", d.Name, err)
		}
	}

	p, err := g.Generate()
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", d.Name, err)
	}
	return p, nil
}

func (d Definition) addSteps(g *Generator) error {
	if d.Effect == "" {
		if err := g.Reserve(len(d.Steps)); err != nil {
			return err
		}
		for i, step := range d.Steps {
			state, err := ParseState(step.Colors, g.ledCount)
			if err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			dur, err := parseDuration(step.Duration)
			if err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			if err := g.AddState(state, dur); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
		return nil
	}

	frameDur, err := parseDuration(d.FrameDuration)
	if err != nil {
		return err
	}
	if frameDur == 0 {
		frameDur = 50 * time.Millisecond
	}
	color := led.White
	if d.Color != "" {
		if color, err = ParseColor(d.Color); err != nil {
			return err
		}
	}
	frames := d.Frames
	if frames <= 0 {
		frames = defaultEffectFrames
	}

	count, err := effectFrameCount(d.Effect, g.ledCount, frames)
	if err != nil {
		return err
	}
	if err := g.Reserve(count); err != nil {
		return err
	}
	states, err := effectStates(d.Effect, g.ledCount, frames, color)
	if err != nil {
		return err
	}
	for _, s := range states {
		if err := g.AddState(s, frameDur); err != nil {
			return err
		}
	}
	return nil
}

// effectFrameCount returns how many states effect produces per repetition.
func effectFrameCount(effect string, n, frames int) (int, error) {
	switch effect {
	case EffectRainbow, EffectBreathe:
		return frames, nil
	case EffectChase:
		return n, nil
	case EffectBlink:
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown effect %q", effect)
	}
}

func effectStates(effect string, n, frames int, c led.Color) ([]led.State, error) {
	var states []led.State
	switch effect {
	case EffectRainbow:
		colors := make([]led.Color, n)
		for f := range frames {
			for i := range n {
				hue := math.Mod(float64(i)*360/float64(n)+float64(f)*360/float64(frames), 360)
				colors[i] = led.HSV(hue, 1, 1)
			}
			states = append(states, led.StateOf(colors...))
		}
	case EffectChase:
		for i := range n {
			states = append(states, led.NewState(n).With(i, c))
		}
	case EffectBreathe:
		h, sat, _ := c.HSV()
		for f := range frames {
			v := 0.5 - 0.5*math.Cos(2*math.Pi*float64(f)/float64(frames))
			states = append(states, led.Fill(n, led.HSV(h, sat, v)))
		}
	case EffectBlink:
		states = append(states, led.Fill(n, c), led.NewState(n))
	default:
		return nil, fmt.Errorf("unknown effect %q", effect)
	}
	return states, nil
}

var namedColors = map[string]led.Color{
	"off":   led.Off,
	"black": led.Off,
	"red":   led.Red,
	"green": led.Green,
	"blue":  led.Blue,
	"white": led.White,
}

// ParseColor accepts a color name, "#rrggbb" or "hsv(h,s,v)".
func ParseColor(s string) (led.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if inner, ok := strings.CutPrefix(s, "hsv("); ok {
		inner, ok = strings.CutSuffix(inner, ")")
		parts := strings.Split(inner, ",")
		if !ok || len(parts) != 3 {
			return led.Color{}, fmt.Errorf("invalid hsv color %q", s)
		}
		var vals [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return led.Color{}, fmt.Errorf("invalid hsv color %q: %w", s, err)
			}
			vals[i] = v
		}
		return led.HSV(vals[0], vals[1], vals[2]), nil
	}
	return led.ParseHex(s)
}

// ParseState parses per-LED colors. A single color fills all n LEDs.
func ParseState(colors []string, n int) (led.State, error) {
	switch len(colors) {
	case 0:
		return led.State{}, errors.New("no colors given")
	case 1:
		c, err := ParseColor(colors[0])
		if err != nil {
			return led.State{}, err
		}
		return led.Fill(n, c), nil
	}
	if len(colors) != n {
		return led.State{}, fmt.Errorf("%w: got %d colors, want %d", ErrStateSize, len(colors), n)
	}
	out := make([]led.Color, n)
	for i, s := range colors {
		c, err := ParseColor(s)
		if err != nil {
			return led.State{}, fmt.Errorf("led %d: %w", i, err)
		}
		out[i] = c
	}
	return led.StateOf(out...), nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
