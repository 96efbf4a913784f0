package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Eps guards divisions by near-zero energies
const Eps = 1e-6

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// StdDev returns the population standard deviation (ddof = 0)
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	_, std := stat.PopMeanStdDev(data, nil)
	return std
}

// Sum returns the sum of data
func Sum(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return floats.Sum(data)
}

// Max returns the largest element, 0 for empty input
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return floats.Max(data)
}

// ArgMax returns the index of the largest element, -1 for empty input
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// Median returns the median, averaging the two middle values for even lengths
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}

// Percentile calculates the p-th percentile (p between 0 and 1)
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 || p < 0 || p > 1 {
		return 0.0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ZScore standardizes data to zero mean and unit variance; constant input maps to zeros
func ZScore(data []float64) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}
	mean, std := stat.PopMeanStdDev(data, nil)
	if std < 1e-10 {
		return out
	}
	for i, v := range data {
		out[i] = (v - mean) / std
	}
	return out
}

// MaxNormalize divides by the maximum (plus Eps)
func MaxNormalize(data []float64) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}
	peak := floats.Max(data) + Eps
	for i, v := range data {
		out[i] = v / peak
	}
	return out
}

// MinMaxNormalize normalizes data to [0, 1] range
func MinMaxNormalize(data []float64) []float64 {
	normalized := make([]float64, len(data))
	if len(data) == 0 {
		return normalized
	}
	lo := floats.Min(data)
	hi := floats.Max(data)
	if math.Abs(hi-lo) < 1e-10 {
		return normalized
	}
	for i, val := range data {
		normalized[i] = (val - lo) / (hi - lo)
	}
	return normalized
}

// Slope fits y against its index (or against step-scaled time when step > 0)
// by least squares and returns the slope
func Slope(y []float64, step float64) float64 {
	if len(y) < 2 {
		return 0
	}
	if step <= 0 {
		step = 1
	}
	x := make([]float64, len(y))
	for i := range x {
		x[i] = float64(i) * step
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(beta) {
		return 0
	}
	return beta
}

// Correlation returns the Pearson correlation, 0 when either input is constant
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	if StdDev(x) < 1e-12 || StdDev(y) < 1e-12 {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// Diff returns data[i] - data[i-1] for i >= 1
func Diff(data []float64) []float64 {
	if len(data) < 2 {
		return []float64{}
	}
	out := make([]float64, len(data)-1)
	for i := 1; i < len(data); i++ {
		out[i-1] = data[i] - data[i-1]
	}
	return out
}

// AbsDiff returns |data[i] - data[i-1]| with a leading zero so lengths match
func AbsDiff(data []float64) []float64 {
	out := make([]float64, len(data))
	for i := 1; i < len(data); i++ {
		out[i] = math.Abs(data[i] - data[i-1])
	}
	return out
}

// Linspace returns n evenly spaced values over [start, end]
func Linspace(start, end float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, end)
}

// Clamp clamps a value to [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Column extracts column j of a row-major matrix
func Column(m [][]float64, j int) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		if j < len(row) {
			out[i] = row[j]
		}
	}
	return out
}

// Transpose swaps the axes of a rectangular matrix
func Transpose(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return [][]float64{}
	}
	out := make([][]float64, len(m[0]))
	for j := range out {
		out[j] = make([]float64, len(m))
		for i := range m {
			out[j][i] = m[i][j]
		}
	}
	return out
}
