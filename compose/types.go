package compose

import (
	"fmt"

	"github.com/RyanBlaney/genesis-map/palette"
)

// EffectType is a visual primitive of the LED device. The numeric values are
// the codes of the binary export.
type EffectType uint8

const (
	Pulse EffectType = iota
	Wave
	Strobe
	Fade
	Sparkle
	Ripple
	Explosion
	Sweep
	Breathe
	Rainbow
	Solid
	Gradient
)

// EffectTypes lists every effect type in code order
var EffectTypes = []EffectType{
	Pulse, Wave, Strobe, Fade, Sparkle, Ripple, Explosion, Sweep, Breathe, Rainbow, Solid, Gradient,
}

func (t EffectType) String() string {
	switch t {
	case Pulse:
		return "pulse"
	case Wave:
		return "wave"
	case Strobe:
		return "strobe"
	case Fade:
		return "fade"
	case Sparkle:
		return "sparkle"
	case Ripple:
		return "ripple"
	case Explosion:
		return "explosion"
	case Sweep:
		return "sweep"
	case Breathe:
		return "breathe"
	case Rainbow:
		return "rainbow"
	case Solid:
		return "solid"
	case Gradient:
		return "gradient"
	}
	return fmt.Sprintf("effect(%d)", uint8(t))
}

// ParseEffectType is the inverse of String
func ParseEffectType(s string) (EffectType, error) {
	for _, t := range EffectTypes {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown effect type %q", s)
}

// Valid reports whether t is a known effect type
func (t EffectType) Valid() bool {
	return t <= Gradient
}

func (t EffectType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid effect type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *EffectType) UnmarshalText(b []byte) error {
	parsed, err := ParseEffectType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Layer is the drawing priority of an effect; higher layers win at runtime
type Layer uint8

const (
	Background Layer = iota
	Rhythm
	Melody
	Accent
	Overlay
)

func (l Layer) String() string {
	switch l {
	case Background:
		return "background"
	case Rhythm:
		return "rhythm"
	case Melody:
		return "melody"
	case Accent:
		return "accent"
	case Overlay:
		return "overlay"
	}
	return fmt.Sprintf("layer(%d)", uint8(l))
}

// Effect is one timed LED command
type Effect struct {
	Type       EffectType     `json:"type"`
	Layer      Layer          `json:"layer"`
	StartMs    int            `json:"start_ms"`
	DurationMs int            `json:"duration_ms"`
	Intensity  float64        `json:"intensity"` // [0, 1]
	Speed      float64        `json:"speed"`     // [0, 1]
	Colors     []palette.RGB  `json:"colors"`
	Params     map[string]any `json:"params,omitempty"`
}

// EndMs is the first millisecond after the effect
func (e Effect) EndMs() int {
	return e.StartMs + e.DurationMs
}

// FirstColor returns the first color, or fallback when there is none
func (e Effect) FirstColor(fallback palette.RGB) palette.RGB {
	if len(e.Colors) == 0 {
		return fallback
	}
	return e.Colors[0]
}
