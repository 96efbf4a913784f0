// Package palette holds the RGB color type shared by the analysers and the
// effect composer, plus the hue tables that map pitch to color.
package palette

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB is an 8-bit color. It encodes to JSON as [r, g, b].
type RGB [3]uint8

var (
	White = RGB{255, 255, 255}
	Black = RGB{0, 0, 0}
	Gray  = RGB{128, 128, 128}
)

// Hex formats the color as #rrggbb
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// FromHSV converts a hue in degrees plus saturation and value in [0, 1].
// Channels are truncated, not rounded, so 0.9 maps to 229.
func FromHSV(hue, saturation, value float64) RGB {
	hue = math.Mod(hue, 360)
	if hue < 0 {
		hue += 360
	}
	c := colorful.Hsv(hue, saturation, value)
	return RGB{channel(c.R), channel(c.G), channel(c.B)}
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, v*255)))
}

// fifthsHue places pitch classes on the color wheel by the circle of fifths:
// C 0, G 30, D 60 ... F 330
var fifthsHue = [12]float64{
	0,   // C
	210, // C#
	60,  // D
	270, // D#
	120, // E
	330, // F
	180, // F#
	30,  // G
	240, // G#
	90,  // A
	300, // A#
	150, // B
}

// chromaticHue walks the wheel in semitone order for per-chord sparkles
var chromaticHue = [12]float64{0, 30, 45, 60, 90, 120, 150, 210, 240, 270, 300, 330}

// KeyHue returns the circle-of-fifths hue of a pitch class
func KeyHue(pitchClass int) float64 {
	return fifthsHue[((pitchClass%12)+12)%12]
}

// ChromaticHue returns the semitone-ordered hue of a pitch class
func ChromaticHue(pitchClass int) float64 {
	return chromaticHue[((pitchClass%12)+12)%12]
}

// KeyPalette returns the base key color and its two analogous neighbours.
// Minor keys are darker and less saturated.
func KeyPalette(root int, minor bool) []RGB {
	s, v := 0.9, 0.9
	if minor {
		s, v = 0.6, 0.7
	}
	base := KeyHue(root)
	return []RGB{
		FromHSV(base, s, v),
		FromHSV(base+30, s, v),
		FromHSV(base-30, s, v),
	}
}
