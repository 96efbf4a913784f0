package emotion

import "github.com/RyanBlaney/genesis-map/palette"

// Mood is a named region of the valence/arousal plane
type Mood string

const (
	MoodHappy     Mood = "happy"
	MoodExcited   Mood = "excited"
	MoodAngry     Mood = "angry"
	MoodTense     Mood = "tense"
	MoodSad       Mood = "sad"
	MoodDepressed Mood = "depressed"
	MoodCalm      Mood = "calm"
	MoodRelaxed   Mood = "relaxed"
	MoodNeutral   Mood = "neutral"
)

// quadrant bounds are inclusive
type quadrant struct {
	mood                   Mood
	minValence, maxValence float64
	minArousal, maxArousal float64
}

// quadrants overlap; the first match wins
var quadrants = []quadrant{
	{MoodHappy, 0.3, 1, 0.5, 1},
	{MoodExcited, 0, 1, 0.7, 1},
	{MoodAngry, -1, -0.3, 0.5, 1},
	{MoodTense, -0.5, 0.5, 0.6, 1},
	{MoodSad, -1, -0.3, 0, 0.5},
	{MoodDepressed, -1, -0.5, 0, 0.3},
	{MoodCalm, 0.3, 1, 0, 0.5},
	{MoodRelaxed, 0, 1, 0, 0.4},
	{MoodNeutral, -0.3, 0.3, 0.3, 0.7},
}

// Classify returns the first quadrant containing (valence, arousal), or
// neutral when none does
func Classify(valence, arousal float64) Mood {
	for _, q := range quadrants {
		if valence >= q.minValence && valence <= q.maxValence &&
			arousal >= q.minArousal && arousal <= q.maxArousal {
			return q.mood
		}
	}
	return MoodNeutral
}

// Palette returns the three colors of a mood; unknown moods get the neutral
// grays
func (m Mood) Palette() []palette.RGB {
	switch m {
	case MoodHappy:
		return []palette.RGB{{255, 223, 0}, {255, 191, 0}, {255, 127, 80}}
	case MoodExcited:
		return []palette.RGB{{255, 0, 255}, {255, 0, 127}, {127, 0, 255}}
	case MoodAngry:
		return []palette.RGB{{255, 0, 0}, {200, 0, 0}, {139, 0, 0}}
	case MoodTense:
		return []palette.RGB{{255, 69, 0}, {255, 140, 0}, {255, 99, 71}}
	case MoodSad:
		return []palette.RGB{{0, 0, 255}, {25, 25, 112}, {70, 130, 180}}
	case MoodDepressed:
		return []palette.RGB{{75, 0, 130}, {72, 61, 139}, {106, 90, 205}}
	case MoodCalm:
		return []palette.RGB{{0, 255, 127}, {64, 224, 208}, {175, 238, 238}}
	case MoodRelaxed:
		return []palette.RGB{{144, 238, 144}, {152, 251, 152}, {143, 188, 143}}
	default:
		return []palette.RGB{{192, 192, 192}, {169, 169, 169}, {128, 128, 128}}
	}
}
