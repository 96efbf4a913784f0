package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Recurrence builds self-similarity structure over a feature sequence
//
// The affinity matrix links each observation to its k nearest neighbours
// under cosine distance, keeping only mutual links, weighted by
// exp(-distance / median neighbour distance).
type Recurrence struct {
	k         int
	pathWidth int
}

// NewRecurrence creates a recurrence builder. k <= 0 selects
// 2*ceil(sqrt(n)) neighbours at build time.
func NewRecurrence(k, pathWidth int) *Recurrence {
	return &Recurrence{k: k, pathWidth: pathWidth}
}

// CosineSimilarity returns the n x n cosine similarity of the rows of data
func CosineSimilarity(data [][]float64) *mat.Dense {
	n := len(data)
	if n == 0 {
		return mat.NewDense(1, 1, nil)
	}
	dim := len(data[0])
	x := mat.NewDense(n, dim, nil)
	for i, row := range data {
		norm := 0.0
		for _, v := range row {
			norm += v * v
		}
		norm = math.Sqrt(norm) + 1e-10
		for j, v := range row {
			x.Set(i, j, v/norm)
		}
	}
	var sim mat.Dense
	sim.Mul(x, x.T())
	return &sim
}

// Affinity builds the symmetric kNN affinity matrix over the rows of data.
// Self links are excluded.
func (r *Recurrence) Affinity(data [][]float64) *mat.Dense {
	n := len(data)
	if n < 2 {
		return mat.NewDense(max(n, 1), max(n, 1), nil)
	}
	k := r.k
	if k <= 0 {
		k = 2 * int(math.Ceil(math.Sqrt(float64(n))))
	}
	k = min(k, n-1)

	sim := CosineSimilarity(data)
	dist := func(i, j int) float64 { return math.Max(0, 1-sim.At(i, j)) }

	// neighbour sets with their distances
	links := mat.NewDense(n, n, nil)
	kept := make([]float64, 0, n*k)
	order := make([]int, 0, n-1)
	for i := range n {
		order = order[:0]
		for j := range n {
			if j != i {
				order = append(order, j)
			}
		}
		sort.SliceStable(order, func(a, b int) bool { return dist(i, order[a]) < dist(i, order[b]) })
		for _, j := range order[:k] {
			links.Set(i, j, 1)
		}
	}

	// mutual neighbours only
	for i := range n {
		for j := i + 1; j < n; j++ {
			if links.At(i, j) > 0 && links.At(j, i) > 0 {
				kept = append(kept, dist(i, j))
			}
		}
	}
	bandwidth := 1.0
	if len(kept) > 0 {
		sorted := append([]float64(nil), kept...)
		sort.Float64s(sorted)
		bandwidth = sorted[len(sorted)/2]
		if bandwidth <= 1e-10 {
			bandwidth = 1.0
		}
	}

	affinity := mat.NewDense(n, n, nil)
	for i := range n {
		for j := i + 1; j < n; j++ {
			if links.At(i, j) > 0 && links.At(j, i) > 0 {
				a := math.Exp(-dist(i, j) / bandwidth)
				affinity.Set(i, j, a)
				affinity.Set(j, i, a)
			}
		}
	}
	return affinity
}

// PathEnhance averages each cell with its neighbours along the main diagonal
// direction over pathWidth cells, which reinforces repeated sequences
func (r *Recurrence) PathEnhance(affinity *mat.Dense) *mat.Dense {
	n, _ := affinity.Dims()
	width := max(1, r.pathWidth)
	half := width / 2
	out := mat.NewDense(n, n, nil)
	for i := range n {
		for j := range n {
			sum, count := 0.0, 0
			for d := -half; d <= half; d++ {
				ii, jj := i+d, j+d
				if ii < 0 || jj < 0 || ii >= n || jj >= n {
					continue
				}
				sum += affinity.At(ii, jj)
				count++
			}
			if count > 0 {
				out.Set(i, j, math.Max(0, sum/float64(count)))
			}
		}
	}
	return out
}

// RecurrenceToLag converts a recurrence matrix to time-lag form:
// lag[l][t] = R[(t+l) mod n][t]
func RecurrenceToLag(recurrence *mat.Dense) *mat.Dense {
	n, _ := recurrence.Dims()
	lag := mat.NewDense(n, n, nil)
	for t := range n {
		for l := range n {
			lag.Set(l, t, recurrence.At((t+l)%n, t))
		}
	}
	return lag
}

// LagNovelty sums each column of the lag matrix
func LagNovelty(lag *mat.Dense) []float64 {
	rows, cols := lag.Dims()
	novelty := make([]float64, cols)
	for t := range cols {
		novelty[t] = mat.Sum(lag.Slice(0, rows, t, t+1))
	}
	return novelty
}

// Novelty runs affinity, path enhancement and lag conversion and returns the
// summed-lag curve, one value per row of data
func (r *Recurrence) Novelty(data [][]float64) []float64 {
	if len(data) == 0 {
		return []float64{}
	}
	if len(data) == 1 {
		return []float64{0}
	}
	enhanced := r.PathEnhance(r.Affinity(data))
	return LagNovelty(RecurrenceToLag(enhanced))
}
