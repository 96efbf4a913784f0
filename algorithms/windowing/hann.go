package windowing

import (
	"fmt"

	"github.com/mjibson/go-dsp/window"
)

// Hann is a cached Hann window. Periodic windows (the default for STFT
// analysis) drop the last point of an (n+1)-point symmetric window.
type Hann struct {
	size         int
	periodic     bool
	coefficients []float64
}

// NewHann creates a periodic Hann window for spectral analysis
func NewHann(size int) *Hann {
	return newHann(size, true)
}

// NewSymmetricHann creates a symmetric Hann window (filter design)
func NewSymmetricHann(size int) *Hann {
	return newHann(size, false)
}

func newHann(size int, periodic bool) *Hann {
	h := &Hann{size: size, periodic: periodic}
	if size <= 0 {
		return h
	}
	if size == 1 {
		h.coefficients = []float64{1}
		return h
	}
	if periodic {
		h.coefficients = window.Hann(size + 1)[:size]
	} else {
		h.coefficients = window.Hann(size)
	}
	return h
}

// ApplyInPlace multiplies signal by the window
func (h *Hann) ApplyInPlace(signal []float64) error {
	if len(signal) != h.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), h.size)
	}
	for i, c := range h.coefficients {
		signal[i] *= c
	}
	return nil
}

// Coefficients returns a copy of the window coefficients
func (h *Hann) Coefficients() []float64 {
	out := make([]float64, len(h.coefficients))
	copy(out, h.coefficients)
	return out
}

// Size returns the window length
func (h *Hann) Size() int {
	return h.size
}

func (h *Hann) Type() string {
	return "hann"
}
