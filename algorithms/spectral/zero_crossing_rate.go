package spectral

// ZeroCrossingRate calculates the fraction of sign changes per frame
type ZeroCrossingRate struct {
	frameSize int
	hopSize   int
}

// NewZeroCrossingRate creates a calculator with centred framing
func NewZeroCrossingRate(frameSize, hopSize int) *ZeroCrossingRate {
	return &ZeroCrossingRate{frameSize: frameSize, hopSize: hopSize}
}

// Compute returns the crossing fraction of a single frame in [0, 1]
func (zcr *ZeroCrossingRate) Compute(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame))
}

// ComputeFrames frames the signal like a centred STFT (edge padding) so frame
// t aligns with spectrogram frame t
func (zcr *ZeroCrossingRate) ComputeFrames(signal []float64) []float64 {
	numFrames := FrameCount(len(signal), STFTParams{WindowSize: zcr.frameSize, HopSize: zcr.hopSize, Center: true})
	out := make([]float64, numFrames)
	half := zcr.frameSize / 2
	frame := make([]float64, zcr.frameSize)
	for t := range numFrames {
		start := t*zcr.hopSize - half
		for i := range frame {
			idx := min(max(start+i, 0), len(signal)-1)
			frame[i] = signal[idx]
		}
		out[t] = zcr.Compute(frame)
	}
	return out
}
