package temporal

import (
	"math"

	"github.com/RyanBlaney/genesis-map/algorithms/common"
)

// BeatTracker places beats on an onset envelope by dynamic programming:
// each frame's cumulative score is its local onset score plus the best
// predecessor score, penalized by the log-ratio of the gap to the period.
type BeatTracker struct {
	tightness float64
	trim      bool
}

// NewBeatTracker creates a tracker with tightness 100 that trims weak
// leading/trailing beats
func NewBeatTracker() *BeatTracker {
	return &BeatTracker{tightness: 100, trim: true}
}

// Track returns increasing beat frame indices for the given tempo
func (bt *BeatTracker) Track(envelope []float64, tempo float64, sampleRate, hopSize int) []int {
	if len(envelope) == 0 || tempo <= 0 || common.Max(envelope) <= 0 {
		return []int{}
	}
	frameRate := float64(sampleRate) / float64(hopSize)
	period := int(math.Round(frameRate * 60.0 / tempo))
	if period < 1 {
		return []int{}
	}

	local := localScore(normalizeOnsets(envelope), period)
	backlink, cumulative := bt.dynamicProgram(local, period)

	tail := lastBeat(cumulative)
	beats := []int{tail}
	for backlink[beats[len(beats)-1]] >= 0 {
		beats = append(beats, backlink[beats[len(beats)-1]])
	}
	for i, j := 0, len(beats)-1; i < j; i, j = i+1, j-1 {
		beats[i], beats[j] = beats[j], beats[i]
	}

	if bt.trim {
		beats = trimBeats(local, beats)
	}
	return beats
}

// normalizeOnsets divides by the sample standard deviation
func normalizeOnsets(envelope []float64) []float64 {
	n := float64(len(envelope))
	std := common.StdDev(envelope)
	if n > 1 {
		std *= math.Sqrt(n / (n - 1))
	}
	out := make([]float64, len(envelope))
	for i, v := range envelope {
		out[i] = v / (std + 1e-12)
	}
	return out
}

// localScore convolves the envelope with a Gaussian whose width scales with
// the beat period
func localScore(envelope []float64, period int) []float64 {
	kernel := make([]float64, 2*period+1)
	for i := range kernel {
		x := float64(i-period) * 32.0 / float64(period)
		kernel[i] = math.Exp(-0.5 * x * x)
	}
	n := len(envelope)
	out := make([]float64, n)
	for t := range n {
		sum := 0.0
		for k, w := range kernel {
			idx := t + period - k
			if idx >= 0 && idx < n {
				sum += w * envelope[idx]
			}
		}
		out[t] = sum
	}
	return out
}

func (bt *BeatTracker) dynamicProgram(local []float64, period int) ([]int, []float64) {
	n := len(local)
	backlink := make([]int, n)
	cumulative := make([]float64, n)

	// predecessor offsets from -2*period to -period/2
	window := []int{}
	for off := -2 * period; off <= -int(math.Round(float64(period)/2)); off++ {
		window = append(window, off)
	}
	txwt := make([]float64, len(window))
	for i, off := range window {
		l := math.Log(-float64(off) / float64(period))
		txwt[i] = -bt.tightness * l * l
	}

	threshold := 0.01 * common.Max(local)
	firstBeat := true
	for i, score := range local {
		bestScore := math.Inf(-1)
		bestLoc := -1
		for k, off := range window {
			loc := i + off
			candidate := txwt[k]
			if loc >= 0 {
				candidate += cumulative[loc]
			}
			if candidate > bestScore {
				bestScore = candidate
				bestLoc = loc
			}
		}
		cumulative[i] = score + bestScore

		if firstBeat && score < threshold {
			backlink[i] = -1
		} else {
			backlink[i] = max(bestLoc, -1)
			firstBeat = false
		}
	}
	return backlink, cumulative
}

// lastBeat returns the last local maximum of the cumulative score that
// exceeds half the median of all local maxima
func lastBeat(cumulative []float64) int {
	n := len(cumulative)
	isMax := make([]bool, n)
	maxima := []float64{}
	for i := range n {
		left := i == 0 || cumulative[i] > cumulative[i-1]
		right := i == n-1 || cumulative[i] >= cumulative[i+1]
		if left && right {
			isMax[i] = true
			maxima = append(maxima, cumulative[i])
		}
	}
	med := common.Median(maxima)
	last := n - 1
	for i := n - 1; i >= 0; i-- {
		if isMax[i] && 2*cumulative[i] > med {
			return i
		}
	}
	return last
}

// trimBeats drops leading and trailing beats whose smoothed local score falls
// below half the RMS of the smoothed beat scores
func trimBeats(local []float64, beats []int) []int {
	if len(beats) == 0 {
		return beats
	}
	hann := []float64{0, 0.5, 1, 0.5, 0}
	scores := make([]float64, len(beats))
	for i, b := range beats {
		scores[i] = local[b]
	}
	smooth := make([]float64, len(scores))
	for i := range scores {
		sum := 0.0
		for k, w := range hann {
			idx := i + 2 - k
			if idx >= 0 && idx < len(scores) {
				sum += w * scores[idx]
			}
		}
		smooth[i] = sum
	}
	sq := 0.0
	for _, v := range smooth {
		sq += v * v
	}
	threshold := 0.5 * math.Sqrt(sq/float64(len(smooth)))

	first, last := -1, -1
	for i, v := range smooth {
		if v > threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return []int{}
	}
	return beats[first : last+1]
}
