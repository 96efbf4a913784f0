package stems

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/genesis-map/algorithms/common"
	"github.com/RyanBlaney/genesis-map/features"
	"github.com/RyanBlaney/genesis-map/logging"
)

const (
	bassPeakPercentile      = 0.8
	vocalPresencePercentile = 0.3
)

// Envelope is the frame RMS of one stem
type Envelope struct {
	RMS         []float64 `json:"-"`
	FramePeriod float64   `json:"frame_period"` // seconds between frames
}

// FrameTime returns the time of frame i in seconds
func (e Envelope) FrameTime(i int) float64 {
	return float64(i) * e.FramePeriod
}

// Duration is the time covered by the envelope
func (e Envelope) Duration() float64 {
	return e.FrameTime(len(e.RMS))
}

func (e Envelope) frameAt(t float64) int {
	if e.FramePeriod <= 0 {
		return -1
	}
	return int(math.Floor(t / e.FramePeriod))
}

// BassFeatures holds bass hits: local RMS maxima above the 80th percentile
type BassFeatures struct {
	Envelope
	PeakTimes  []float64 `json:"peak_times"`
	PeakLevels []float64 `json:"peak_levels"` // max-normalized RMS at each peak
}

// VocalFeatures marks frames where the vocal stem is present
type VocalFeatures struct {
	Envelope
	Presence []bool `json:"-"`
}

// Run is a contiguous stretch of vocal presence
type Run struct {
	Start float64
	End   float64
}

// PresentAt reports whether vocals are present at t seconds. A nil receiver
// reports false so callers without stems need no special case.
func (v *VocalFeatures) PresentAt(t float64) bool {
	if v == nil {
		return false
	}
	i := v.frameAt(t)
	return i >= 0 && i < len(v.Presence) && v.Presence[i]
}

// Runs returns the stretches of presence. A run still open at the last frame
// ends at the envelope duration.
func (v *VocalFeatures) Runs() []Run {
	runs := []Run{}
	if v == nil {
		return runs
	}
	start := -1
	for i, p := range v.Presence {
		switch {
		case p && start < 0:
			start = i
		case !p && start >= 0:
			runs = append(runs, Run{Start: v.FrameTime(start), End: v.FrameTime(i)})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, Run{Start: v.FrameTime(start), End: v.Duration()})
	}
	return runs
}

// PresenceRatio is the fraction of frames with vocals
func (v *VocalFeatures) PresenceRatio() float64 {
	if v == nil || len(v.Presence) == 0 {
		return 0
	}
	n := 0
	for _, p := range v.Presence {
		if p {
			n++
		}
	}
	return float64(n) / float64(len(v.Presence))
}

// DrumFeatures holds drum onset times
type DrumFeatures struct {
	Envelope
	Onsets []float64 `json:"onsets"`
}

// OtherFeatures is the residual stem
type OtherFeatures struct {
	Envelope
}

// Features is the typed per-stem record. A nil field means the stem was not
// available.
type Features struct {
	Bass   *BassFeatures
	Vocals *VocalFeatures
	Drums  *DrumFeatures
	Other  *OtherFeatures
}

// Empty reports whether no stem was analysed
func (f *Features) Empty() bool {
	return f == nil || (f.Bass == nil && f.Vocals == nil && f.Drums == nil && f.Other == nil)
}

// VocalTrack returns the vocal features or nil
func (f *Features) VocalTrack() *VocalFeatures {
	if f == nil {
		return nil
	}
	return f.Vocals
}

// Extract computes typed features for every stem in the map. Stems with no
// samples are skipped; a non-positive sample rate is an error.
func Extract(waveforms map[Name]Waveform, params features.Params) (*Features, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "stem_features",
		"function":  "Extract",
	})

	out := &Features{}
	for _, name := range Names {
		w, ok := waveforms[name]
		if !ok {
			continue
		}
		if w.SampleRate <= 0 {
			return nil, fmt.Errorf("stem %s: invalid sample rate %d", name, w.SampleRate)
		}
		if len(w.Samples) == 0 {
			logger.Warn("Skipping empty stem", logging.Fields{"stem": name})
			continue
		}

		ex := features.NewExtractor(w.Samples, w.SampleRate)
		rms, err := ex.RMS(params)
		if err != nil {
			return nil, fmt.Errorf("stem %s: %w", name, err)
		}
		env := Envelope{RMS: rms.Values(), FramePeriod: rms.FrameDuration()}

		switch name {
		case Bass:
			out.Bass = bassFeatures(env)
		case Vocals:
			out.Vocals = vocalFeatures(env)
		case Drums:
			onset, err := ex.Onset(params)
			if err != nil {
				return nil, fmt.Errorf("stem %s: %w", name, err)
			}
			out.Drums = &DrumFeatures{Envelope: env, Onsets: onsetTimes(onset)}
		case Other:
			out.Other = &OtherFeatures{Envelope: env}
		}
	}

	logger.Debug("Stem features extracted", logging.Fields{
		"bass":   out.Bass != nil,
		"vocals": out.Vocals != nil,
		"drums":  out.Drums != nil,
		"other":  out.Other != nil,
	})
	return out, nil
}

func bassFeatures(env Envelope) *BassFeatures {
	b := &BassFeatures{Envelope: env, PeakTimes: []float64{}, PeakLevels: []float64{}}
	rms := env.RMS
	if len(rms) < 3 {
		return b
	}
	threshold := common.Percentile(rms, bassPeakPercentile)
	peak := common.Max(rms) + common.Eps
	for i := 1; i < len(rms)-1; i++ {
		if rms[i] > threshold && rms[i] > rms[i-1] && rms[i] > rms[i+1] {
			b.PeakTimes = append(b.PeakTimes, env.FrameTime(i))
			b.PeakLevels = append(b.PeakLevels, rms[i]/peak)
		}
	}
	return b
}

func vocalFeatures(env Envelope) *VocalFeatures {
	v := &VocalFeatures{Envelope: env, Presence: make([]bool, len(env.RMS))}
	if len(env.RMS) == 0 {
		return v
	}
	threshold := common.Percentile(env.RMS, vocalPresencePercentile)
	for i, r := range env.RMS {
		v.Presence[i] = r > threshold
	}
	return v
}

// onsetTimes peak-picks the onset envelope with the usual 30 ms / 100 ms
// windows over a max-normalized curve
func onsetTimes(onset *features.Series) []float64 {
	times := []float64{}
	period := onset.FrameDuration()
	if period <= 0 {
		return times
	}
	frames := func(seconds float64) int {
		return max(1, int(math.Round(seconds/period)))
	}
	peaks := common.PeakPick(common.MaxNormalize(onset.Values()), common.PeakPickParams{
		PreMax:  frames(0.03),
		PostMax: 1,
		PreAvg:  frames(0.1),
		PostAvg: frames(0.1),
		Delta:   0.07,
		Wait:    frames(0.03),
	})
	for _, p := range peaks {
		times = append(times, onset.FrameTime(p))
	}
	return times
}
