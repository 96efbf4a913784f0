package stems

import (
	"context"
	"fmt"
)

// Name identifies a separated component of a mix
type Name string

const (
	Bass   Name = "bass"
	Vocals Name = "vocals"
	Drums  Name = "drums"
	Other  Name = "other"
)

// Names lists the stems a four-source separator produces, in export order
var Names = []Name{Bass, Drums, Vocals, Other}

// ParseName maps a stem file base name to its Name
func ParseName(s string) (Name, error) {
	switch Name(s) {
	case Bass, Vocals, Drums, Other:
		return Name(s), nil
	}
	return "", fmt.Errorf("unknown stem %q", s)
}

// Waveform is a mono stem signal
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the stem length in seconds
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Separator splits an audio file into named stems
type Separator interface {
	Separate(ctx context.Context, path string) (map[Name]Waveform, error)
}
