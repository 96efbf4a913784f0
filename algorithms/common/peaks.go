package common

// PeakPickParams mirror the usual onset peak-picking window definitions.
// Max windows cover [n-PreMax, n+PostMax), average windows [n-PreAvg, n+PostAvg).
type PeakPickParams struct {
	PreMax  int
	PostMax int
	PreAvg  int
	PostAvg int
	Delta   float64
	Wait    int
}

// PeakPick returns indices n where x[n] is the local window maximum, exceeds the
// local window mean by Delta, and lies more than Wait samples after the
// previously picked peak.
func PeakPick(x []float64, p PeakPickParams) []int {
	n := len(x)
	peaks := []int{}
	if n == 0 {
		return peaks
	}
	p.PostMax = max(1, p.PostMax)
	p.PostAvg = max(1, p.PostAvg)

	last := -p.Wait - 1
	for i := range n {
		lo := max(0, i-p.PreMax)
		hi := min(n, i+p.PostMax)
		localMax := x[lo]
		for k := lo + 1; k < hi; k++ {
			if x[k] > localMax {
				localMax = x[k]
			}
		}
		if x[i] != localMax {
			continue
		}

		lo = max(0, i-p.PreAvg)
		hi = min(n, i+p.PostAvg)
		if x[i] < Mean(x[lo:hi])+p.Delta {
			continue
		}

		if i-last > p.Wait {
			peaks = append(peaks, i)
			last = i
		}
	}
	return peaks
}

// LocalMaxima returns strict rising / non-falling peaks at or above minHeight.
// Plateaus report their first sample.
func LocalMaxima(x []float64, minHeight float64) []int {
	peaks := []int{}
	for i := 1; i < len(x)-1; i++ {
		if x[i] > x[i-1] && x[i] >= x[i+1] && x[i] >= minHeight {
			// skip the rest of a plateau
			if x[i] == x[i+1] {
				j := i + 1
				for j < len(x)-1 && x[j] == x[i] {
					j++
				}
				if x[j] > x[i] {
					i = j - 1
					continue
				}
				peaks = append(peaks, i)
				i = j - 1
				continue
			}
			peaks = append(peaks, i)
		}
	}
	return peaks
}
