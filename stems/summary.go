package stems

import "github.com/RyanBlaney/genesis-map/algorithms/common"

// StemSummary condenses one stem for the GenesisMap stems section
type StemSummary struct {
	DurationMs    int     `json:"duration_ms"`
	RMSMean       float64 `json:"rms_mean"`
	RMSMax        float64 `json:"rms_max"`
	PeakCount     int     `json:"peak_count,omitempty"`
	PresenceRatio float64 `json:"presence_ratio,omitempty"`
	OnsetCount    int     `json:"onset_count,omitempty"`
}

// Summary maps stem names to their condensed features
type Summary map[Name]StemSummary

func summarize(env Envelope) StemSummary {
	return StemSummary{
		DurationMs: int(env.Duration() * 1000),
		RMSMean:    common.Mean(env.RMS),
		RMSMax:     common.Max(env.RMS),
	}
}

// Summary returns one entry per available stem; absent stems yield an empty
// map rather than nil
func (f *Features) Summary() Summary {
	out := Summary{}
	if f == nil {
		return out
	}
	if f.Bass != nil {
		s := summarize(f.Bass.Envelope)
		s.PeakCount = len(f.Bass.PeakTimes)
		out[Bass] = s
	}
	if f.Vocals != nil {
		s := summarize(f.Vocals.Envelope)
		s.PresenceRatio = f.Vocals.PresenceRatio()
		out[Vocals] = s
	}
	if f.Drums != nil {
		s := summarize(f.Drums.Envelope)
		s.OnsetCount = len(f.Drums.Onsets)
		out[Drums] = s
	}
	if f.Other != nil {
		out[Other] = summarize(f.Other.Envelope)
	}
	return out
}
