package spectral

// SpectralCentroid computes the spectral centroid (center of mass) of a spectrum
type SpectralCentroid struct {
	sampleRate int
}

// NewSpectralCentroid creates a new spectral centroid calculator
func NewSpectralCentroid(sampleRate int) *SpectralCentroid {
	return &SpectralCentroid{sampleRate: sampleRate}
}

// Compute returns the magnitude-weighted mean frequency in Hz
func (sc *SpectralCentroid) Compute(spectrum []float64) float64 {
	if len(spectrum) < 2 {
		return 0.0
	}
	binHz := float64(sc.sampleRate) / float64((len(spectrum)-1)*2)

	numerator := 0.0
	denominator := 0.0
	for i, mag := range spectrum {
		numerator += float64(i) * binHz * mag
		denominator += mag
	}
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// ComputeFrames processes every frame of a spectrogram
func (sc *SpectralCentroid) ComputeFrames(spectrogram [][]float64) []float64 {
	centroids := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		centroids[t] = sc.Compute(spectrum)
	}
	return centroids
}
