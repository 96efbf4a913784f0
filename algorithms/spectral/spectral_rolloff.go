package spectral

// SpectralRolloff computes the frequency below which a fraction of the
// spectral energy lies
type SpectralRolloff struct {
	sampleRate int
	threshold  float64
}

// NewSpectralRolloff creates a calculator; threshold is typically 0.85
func NewSpectralRolloff(sampleRate int, threshold float64) *SpectralRolloff {
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.85
	}
	return &SpectralRolloff{sampleRate: sampleRate, threshold: threshold}
}

// Compute calculates spectral rolloff for a single magnitude spectrum
func (sr *SpectralRolloff) Compute(spectrum []float64) float64 {
	if len(spectrum) < 2 {
		return 0.0
	}
	binHz := float64(sr.sampleRate) / float64((len(spectrum)-1)*2)

	total := 0.0
	for _, mag := range spectrum {
		total += mag * mag
	}
	if total == 0 {
		return 0
	}

	target := sr.threshold * total
	cumulative := 0.0
	for i, mag := range spectrum {
		cumulative += mag * mag
		if cumulative >= target {
			return float64(i) * binHz
		}
	}
	return float64(len(spectrum)-1) * binHz
}

// ComputeFrames processes every frame of a spectrogram
func (sr *SpectralRolloff) ComputeFrames(spectrogram [][]float64) []float64 {
	rolloffs := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		rolloffs[t] = sr.Compute(spectrum)
	}
	return rolloffs
}
