package chroma

import (
	"math"
)

// Tonnetz projects chroma onto the 6-D tonal centroid space: pairs of
// coordinates for the circle of fifths, the circle of minor thirds and the
// circle of major thirds.
//
// Close proximity in this space means a strong harmonic relationship, so the
// per-frame trajectory is a compact cue for harmonic movement.
type Tonnetz struct {
	phi [6][12]float64
}

// NewTonnetz creates a new tonal centroid projector
func NewTonnetz() *Tonnetz {
	t := &Tonnetz{}
	scale := [6]float64{7.0 / 6, 7.0 / 6, 3.0 / 2, 3.0 / 2, 2.0 / 3, 2.0 / 3}
	radius := [6]float64{1, 1, 1, 1, 0.5, 0.5}
	for d := range 6 {
		for pc := range 12 {
			v := scale[d] * float64(pc)
			if d%2 == 0 {
				v -= 0.5
			}
			t.phi[d][pc] = radius[d] * math.Cos(math.Pi*v)
		}
	}
	return t
}

// Compute returns one 6-D centroid per chroma frame (time x 6). Frames are
// L1 normalized first; silent frames map to the origin.
func (t *Tonnetz) Compute(chromagram [][]float64) [][]float64 {
	out := make([][]float64, len(chromagram))
	for i, frame := range chromagram {
		out[i] = make([]float64, 6)
		total := 0.0
		for _, v := range frame {
			total += math.Abs(v)
		}
		if total < 1e-10 {
			continue
		}
		for d := range 6 {
			sum := 0.0
			for pc := 0; pc < 12 && pc < len(frame); pc++ {
				sum += t.phi[d][pc] * frame[pc] / total
			}
			out[i][d] = sum
		}
	}
	return out
}
