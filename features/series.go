package features

import (
	"math"
)

// Params selects the framing of a feature series
type Params struct {
	FrameSize int `json:"frame_size" yaml:"frame_size"`
	HopSize   int `json:"hop_size" yaml:"hop_size"`
}

// DefaultParams returns 2048/512 framing, the hop used for beats and structure
func DefaultParams() Params {
	return Params{FrameSize: 2048, HopSize: 512}
}

// Series is a frame-aligned feature matrix: Frames[t] holds the Dim values of
// frame t, and frame t is centred on sample t*Hop.
type Series struct {
	Name       string      `json:"name"`
	Frames     [][]float64 `json:"frames"`
	Hop        int         `json:"hop"`
	SampleRate int         `json:"sample_rate"`
}

// NewScalarSeries wraps a one-dimensional curve
func NewScalarSeries(name string, values []float64, hop, sampleRate int) *Series {
	frames := make([][]float64, len(values))
	for t, v := range values {
		frames[t] = []float64{v}
	}
	return &Series{Name: name, Frames: frames, Hop: hop, SampleRate: sampleRate}
}

// Len returns the number of frames
func (s *Series) Len() int {
	return len(s.Frames)
}

// Dim returns the number of values per frame
func (s *Series) Dim() int {
	if len(s.Frames) == 0 {
		return 0
	}
	return len(s.Frames[0])
}

// FrameTime returns the centre time of frame i in seconds
func (s *Series) FrameTime(i int) float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(i*s.Hop) / float64(s.SampleRate)
}

// FrameDuration is the time between consecutive frames
func (s *Series) FrameDuration() float64 {
	return s.FrameTime(1)
}

// TimeToFrame returns the frame index nearest below t, clamped to the series
func (s *Series) TimeToFrame(t float64) int {
	if s.Hop <= 0 || len(s.Frames) == 0 {
		return 0
	}
	frame := int(math.Floor(t * float64(s.SampleRate) / float64(s.Hop)))
	return min(max(frame, 0), len(s.Frames)-1)
}

// Row returns dimension d across all frames
func (s *Series) Row(d int) []float64 {
	out := make([]float64, len(s.Frames))
	for t, frame := range s.Frames {
		if d < len(frame) {
			out[t] = frame[d]
		}
	}
	return out
}

// Values returns the first dimension, the natural view of scalar series
func (s *Series) Values() []float64 {
	return s.Row(0)
}

// Stack concatenates the per-frame vectors of several series, truncating to
// the shortest. All series must share the same hop.
func Stack(series ...*Series) [][]float64 {
	if len(series) == 0 {
		return [][]float64{}
	}
	n := series[0].Len()
	for _, s := range series[1:] {
		n = min(n, s.Len())
	}
	out := make([][]float64, n)
	for t := range n {
		for _, s := range series {
			out[t] = append(out[t], s.Frames[t]...)
		}
	}
	return out
}
