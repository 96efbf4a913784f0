package beats

import (
	"math"
	"sort"
)

// EventType distinguishes drop events from the buildups that precede them
type EventType string

const (
	EventDrop    EventType = "drop"
	EventBuildup EventType = "buildup"
)

// BeatGrid is the rhythmic skeleton of a track
type BeatGrid struct {
	Tempo       float64   `json:"tempo"`        // BPM
	BeatTimes   []float64 `json:"beat_times"`   // seconds, strictly increasing
	BeatFrames  []int     `json:"beat_frames"`  // onset frames at HopSize
	Downbeats   []float64 `json:"downbeats"`    // subset of BeatTimes
	GrooveScore float64   `json:"groove_score"` // [0, 1]
	HopSize     int       `json:"hop_size"`
	SampleRate  int       `json:"sample_rate"`
}

// BeatInterval returns the median spacing of beats, or fallback when fewer
// than two beats exist
func (g *BeatGrid) BeatInterval(fallback float64) float64 {
	if g == nil || len(g.BeatTimes) < 2 {
		return fallback
	}
	intervals := make([]float64, len(g.BeatTimes)-1)
	for i := 1; i < len(g.BeatTimes); i++ {
		intervals[i-1] = g.BeatTimes[i] - g.BeatTimes[i-1]
	}
	sort.Float64s(intervals)
	n := len(intervals)
	if n%2 == 1 {
		return intervals[n/2]
	}
	return 0.5 * (intervals[n/2-1] + intervals[n/2])
}

// IsDownbeat reports whether t (seconds) is one of the downbeats
func (g *BeatGrid) IsDownbeat(t float64) bool {
	for _, d := range g.Downbeats {
		if math.Abs(d-t) < 1e-9 {
			return true
		}
	}
	return false
}

// DropEvent is a detected drop or the buildup leading into one
type DropEvent struct {
	Timestamp   float64   `json:"timestamp"` // seconds; buildups carry their start
	Type        EventType `json:"type"`
	Confidence  float64   `json:"confidence"`
	EnergyRatio float64   `json:"energy_ratio"`
	DurationMs  int       `json:"duration_ms"` // 0 for drops
}

// nearest returns the element of sorted times closest to t and its distance
func nearest(times []float64, t float64) (float64, float64) {
	best, dist := 0.0, math.Inf(1)
	for _, v := range times {
		if d := math.Abs(v - t); d < dist {
			best, dist = v, d
		}
	}
	return best, dist
}
