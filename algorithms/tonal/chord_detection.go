package tonal

import (
	"math"
	"strings"

	"github.com/RyanBlaney/genesis-map/algorithms/chroma"
)

// ChordQuality identifies a chord template
type ChordQuality int

const (
	ChordMajor ChordQuality = iota
	ChordMinor
	ChordDominant7
	ChordMajor7
	ChordMinor7
	ChordDiminished
	ChordAugmented
)

// chordQualities lists templates in matching order; on equal scores the
// earlier template wins
var chordQualities = []ChordQuality{
	ChordMajor, ChordMinor, ChordDominant7, ChordMajor7, ChordMinor7, ChordDiminished, ChordAugmented,
}

// Template returns the root-position pitch class mask
func (q ChordQuality) Template() [12]float64 {
	switch q {
	case ChordMinor:
		return [12]float64{1, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0}
	case ChordDominant7:
		return [12]float64{1, 0, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0}
	case ChordMajor7:
		return [12]float64{1, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0, 1}
	case ChordMinor7:
		return [12]float64{1, 0, 0, 1, 0, 0, 0, 1, 0, 0, 1, 0}
	case ChordDiminished:
		return [12]float64{1, 0, 0, 1, 0, 0, 1, 0, 0, 0, 0, 0}
	case ChordAugmented:
		return [12]float64{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}
	default:
		return [12]float64{1, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0, 0}
	}
}

// Suffix is the label suffix following the root name
func (q ChordQuality) Suffix() string {
	switch q {
	case ChordMinor:
		return "m"
	case ChordDominant7:
		return ":dom7"
	case ChordMajor7:
		return ":maj7"
	case ChordMinor7:
		return ":min7"
	case ChordDiminished:
		return "dim"
	case ChordAugmented:
		return "aug"
	default:
		return ""
	}
}

// Chord is a root plus quality
type Chord struct {
	Root    int
	Quality ChordQuality
}

// Label formats the chord as "C", "Am", "Bdim", "Caug", "C:maj7", "A:min7", "G:dom7"
func (c Chord) Label() string {
	return chroma.PitchClasses[c.Root] + c.Quality.Suffix()
}

// ParseChord is the inverse of Label
func ParseChord(label string) (Chord, bool) {
	root := -1
	rest := ""
	// two-letter names first so "C#" is not read as "C"
	for _, n := range []int{2, 1} {
		if len(label) < n {
			continue
		}
		for pc, name := range chroma.PitchClasses {
			if len(name) == n && strings.HasPrefix(label, name) {
				root, rest = pc, label[n:]
				break
			}
		}
		if root >= 0 {
			break
		}
	}
	if root < 0 {
		return Chord{}, false
	}
	for _, q := range chordQualities {
		if q.Suffix() == rest {
			return Chord{Root: root, Quality: q}, true
		}
	}
	return Chord{}, false
}

// ChordMatcher scores chroma frames against every template at every root
type ChordMatcher struct{}

// NewChordMatcher creates a template matcher
func NewChordMatcher() *ChordMatcher {
	return &ChordMatcher{}
}

// Match returns the best-scoring chord for a chroma frame. The score is the
// cosine similarity between the frame and the template, so a pure triad
// prefers its triad over the seventh chords that contain it. ok is false for
// frames whose raw sum is at or below minEnergy.
func (cm *ChordMatcher) Match(frame []float64, minEnergy float64) (chord Chord, score float64, ok bool) {
	total, norm := 0.0, 0.0
	for _, v := range frame {
		total += v
		norm += v * v
	}
	if total <= minEnergy || norm == 0 {
		return Chord{}, 0, false
	}
	norm = math.Sqrt(norm)

	for root := range 12 {
		for _, q := range chordQualities {
			template := q.Template()
			dot, notes := 0.0, 0.0
			for j := range 12 {
				dot += frame[(j+root)%12] * template[j]
				notes += template[j]
			}
			if s := dot / (norm * math.Sqrt(notes)); s > score {
				score = s
				chord = Chord{Root: root, Quality: q}
				ok = true
			}
		}
	}
	return chord, score, ok
}
