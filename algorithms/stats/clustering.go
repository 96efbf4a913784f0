package stats

import (
	"fmt"
	"math"
	"math/rand"
)

// ClusteringResult contains the results of clustering analysis
type ClusteringResult struct {
	Labels      []int       `json:"labels"`  // Cluster assignment for each point
	Centers     [][]float64 `json:"centers"` // Cluster centers
	Inertia     float64     `json:"inertia"` // Total within-cluster sum of squares
	NumClusters int         `json:"num_clusters"`
	Converged   bool        `json:"converged"`
	Iterations  int         `json:"iterations"`
}

// ClusteringParams contains parameters for k-means
type ClusteringParams struct {
	NumClusters   int     `json:"num_clusters"`
	MaxIterations int     `json:"max_iterations"`
	Tolerance     float64 `json:"tolerance"`
	NumInit       int     `json:"num_init"` // independent k-means++ restarts
	RandomSeed    int64   `json:"random_seed"`
}

// Clustering implements seeded k-means with k-means++ initialization.
// Results are deterministic for a given seed.
//
// References:
//   - MacQueen, J. (1967). "Some methods for classification and analysis of
//     multivariate observations"
//   - Arthur, D., & Vassilvitskii, S. (2007). "k-means++: The advantages of
//     careful seeding"
type Clustering struct {
	params ClusteringParams
	rng    *rand.Rand
}

// NewClustering creates a new clustering analyzer with default parameters
func NewClustering() *Clustering {
	return NewClusteringWithParams(ClusteringParams{
		NumClusters:   3,
		MaxIterations: 300,
		Tolerance:     1e-4,
		NumInit:       10,
		RandomSeed:    42,
	})
}

// NewClusteringWithParams creates a clustering analyzer with custom parameters
func NewClusteringWithParams(params ClusteringParams) *Clustering {
	if params.NumInit <= 0 {
		params.NumInit = 1
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = 300
	}
	return &Clustering{
		params: params,
		rng:    rand.New(rand.NewSource(params.RandomSeed)),
	}
}

// Fit runs NumInit restarts and keeps the lowest-inertia solution
func (c *Clustering) Fit(data [][]float64) (*ClusteringResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}
	k := c.params.NumClusters
	if k <= 0 {
		return nil, fmt.Errorf("number of clusters must be positive")
	}
	if k > len(data) {
		return nil, fmt.Errorf("number of clusters (%d) cannot exceed number of data points (%d)", k, len(data))
	}

	var best *ClusteringResult
	for range c.params.NumInit {
		result := c.kmeans(data, k)
		if best == nil || result.Inertia < best.Inertia {
			best = result
		}
	}
	return best, nil
}

// kmeans implements Lloyd's algorithm from one k-means++ seeding
func (c *Clustering) kmeans(data [][]float64, k int) *ClusteringResult {
	n := len(data)
	dim := len(data[0])

	centers := c.initializeCenters(data, k)
	labels := make([]int, n)

	converged := false
	iterations := 0

	for iterations < c.params.MaxIterations && !converged {
		// Assignment step: assign each point to closest center
		for i, point := range data {
			minDist := math.Inf(1)
			for j, center := range centers {
				if dist := squaredDistance(point, center); dist < minDist {
					minDist = dist
					labels[i] = j
				}
			}
		}

		// Update step: recalculate centers
		newCenters := make([][]float64, k)
		clusterSizes := make([]int, k)
		for i := range newCenters {
			newCenters[i] = make([]float64, dim)
		}
		for i, point := range data {
			cluster := labels[i]
			clusterSizes[cluster]++
			for j := range point {
				newCenters[cluster][j] += point[j]
			}
		}

		centerMovement := 0.0
		for i := range newCenters {
			if clusterSizes[i] == 0 {
				// empty cluster keeps its previous center
				copy(newCenters[i], centers[i])
				continue
			}
			for j := range newCenters[i] {
				newCenters[i][j] /= float64(clusterSizes[i])
			}
			centerMovement += squaredDistance(centers[i], newCenters[i])
		}

		centers = newCenters
		converged = centerMovement < c.params.Tolerance
		iterations++
	}

	// final assignment against the converged centers
	for i, point := range data {
		minDist := math.Inf(1)
		for j, center := range centers {
			if dist := squaredDistance(point, center); dist < minDist {
				minDist = dist
				labels[i] = j
			}
		}
	}

	return &ClusteringResult{
		Centers:     centers,
		Labels:      labels,
		Inertia:     calculateInertia(data, labels, centers),
		NumClusters: k,
		Converged:   converged,
		Iterations:  iterations,
	}
}

// initializeCenters picks k seeds with probability proportional to the
// squared distance to the nearest seed chosen so far
func (c *Clustering) initializeCenters(data [][]float64, k int) [][]float64 {
	n := len(data)
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), data[c.rng.Intn(n)]...))

	distances := make([]float64, n)
	for len(centers) < k {
		totalDist := 0.0
		for j, point := range data {
			minDist := math.Inf(1)
			for _, center := range centers {
				minDist = math.Min(minDist, squaredDistance(point, center))
			}
			distances[j] = minDist
			totalDist += minDist
		}

		next := c.rng.Intn(n)
		if totalDist > 0 {
			r := c.rng.Float64() * totalDist
			cumSum := 0.0
			for j, dist := range distances {
				cumSum += dist
				if cumSum >= r && dist > 0 {
					next = j
					break
				}
			}
		}
		centers = append(centers, append([]float64(nil), data[next]...))
	}

	return centers
}

func calculateInertia(data [][]float64, labels []int, centers [][]float64) float64 {
	inertia := 0.0
	for i, point := range data {
		inertia += squaredDistance(point, centers[labels[i]])
	}
	return inertia
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
