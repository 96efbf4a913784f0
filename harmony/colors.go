package harmony

import (
	"github.com/RyanBlaney/genesis-map/algorithms/tonal"
	"github.com/RyanBlaney/genesis-map/palette"
)

// ChordColor takes the hue of the chord root on the circle of fifths and
// shades it by quality: minor chords darker, diminished darker still,
// augmented fully saturated.
func ChordColor(c tonal.Chord) palette.RGB {
	hue := palette.KeyHue(c.Root)
	switch c.Quality {
	case tonal.ChordMinor, tonal.ChordMinor7:
		return palette.FromHSV(hue, 0.6, 0.7)
	case tonal.ChordDiminished:
		return palette.FromHSV(hue, 0.4, 0.5)
	case tonal.ChordAugmented:
		return palette.FromHSV(hue, 1, 1)
	default:
		return palette.FromHSV(hue, 0.9, 0.9)
	}
}

// LabelColor colors a chord label, falling back to gray for labels that do
// not parse
func LabelColor(label string) palette.RGB {
	c, ok := tonal.ParseChord(label)
	if !ok {
		return palette.Gray
	}
	return ChordColor(c)
}
