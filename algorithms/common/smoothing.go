package common

import (
	"math"
	"sort"
)

// reflectIndex maps i into [0, n) mirroring about the edges (d c b a | a b c d | d c b a)
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}

// GaussianKernel returns a normalized kernel of radius int(truncate*sigma + 0.5)
func GaussianKernel(sigma, truncate float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// GaussianFilter1D smooths data with a Gaussian of the given sigma (in samples),
// truncated at 4 sigma, reflecting at the edges
func GaussianFilter1D(data []float64, sigma float64) []float64 {
	n := len(data)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if sigma <= 0 {
		copy(out, data)
		return out
	}
	kernel := GaussianKernel(sigma, 4.0)
	radius := len(kernel) / 2
	for i := range n {
		acc := 0.0
		for k, w := range kernel {
			acc += w * data[reflectIndex(i+k-radius, n)]
		}
		out[i] = acc
	}
	return out
}

// MedianFilter applies a running median of odd width size, reflecting at the edges
func MedianFilter(data []float64, size int) []float64 {
	n := len(data)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if size < 2 {
		copy(out, data)
		return out
	}
	if size%2 == 0 {
		size++
	}
	half := size / 2
	window := make([]float64, size)
	for i := range n {
		for k := range size {
			window[k] = data[reflectIndex(i+k-half, n)]
		}
		sort.Float64s(window)
		out[i] = window[half]
	}
	return out
}

// DownsampleIndices returns the indices kept when striding n items so that at
// most maxPoints remain
func DownsampleIndices(n, maxPoints int) []int {
	if n <= 0 || maxPoints <= 0 {
		return []int{}
	}
	stride := max(1, (n+maxPoints-1)/maxPoints)
	idx := make([]int, 0, (n+stride-1)/stride)
	for i := 0; i < n; i += stride {
		idx = append(idx, i)
	}
	return idx
}
