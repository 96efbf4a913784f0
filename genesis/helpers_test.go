package genesis

import (
	"context"
	"math"

	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/stems"
)

const testSampleRate = 22050

// song is a C major triad under a 120 BPM click, quiet for the first half
// and three times louder after
func song(seconds float64) []float64 {
	n := int(seconds * testSampleRate)
	out := make([]float64, n)
	beat := int(0.5 * testSampleRate)
	click := testSampleRate / 100
	for i := range out {
		t := float64(i) / testSampleRate
		gain := 0.1
		if t >= seconds/2 {
			gain = 0.3
		}
		v := 0.0
		for _, f := range []float64{261.63, 329.63, 392.0} {
			v += math.Sin(2 * math.Pi * f * t)
		}
		out[i] = gain * v / 3
		if i%beat < click {
			out[i] += 0.6 * math.Sin(2*math.Pi*1000*t)
		}
	}
	return out
}

// bassLine is a 55 Hz tone gated on every beat
func bassLine(seconds float64) []float64 {
	out := make([]float64, int(seconds*testSampleRate))
	beat := int(0.5 * testSampleRate)
	for i := range out {
		if i%beat < beat/4 {
			out[i] = 0.8 * math.Sin(2*math.Pi*55*float64(i)/testSampleRate)
		}
	}
	return out
}

// vocalLine sings from 4 s to 8 s
func vocalLine(seconds float64) []float64 {
	out := make([]float64, int(seconds*testSampleRate))
	for i := range out {
		t := float64(i) / testSampleRate
		if t >= 4 && t < 8 {
			out[i] = 0.5 * math.Sin(2*math.Pi*440*t)
		}
	}
	return out
}

type fakeSeparator struct {
	seconds float64
	err     error
	calls   int
}

func (s *fakeSeparator) Separate(_ context.Context, path string) (map[stems.Name]stems.Waveform, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return map[stems.Name]stems.Waveform{
		stems.Bass:   {Samples: bassLine(s.seconds), SampleRate: testSampleRate},
		stems.Vocals: {Samples: vocalLine(s.seconds), SampleRate: testSampleRate},
	}, nil
}

func separatorFailure() error {
	cerr := apperrors.NewCollaboratorError("demucs", "stem_separation", apperrors.ErrToolNotInstalled)
	cerr.ExitCode = 1
	return cerr
}
