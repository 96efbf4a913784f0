package stats

import (
	"reflect"
	"testing"
)

func TestClusteringSeparatesGroups(t *testing.T) {
	data := [][]float64{{0, 0}, {0.2, 0.1}, {0.1, 0.3}, {10, 10}, {10.2, 9.9}, {9.8, 10.1}}
	params := ClusteringParams{NumClusters: 2, MaxIterations: 100, Tolerance: 1e-6, NumInit: 5, RandomSeed: 7}

	result, err := NewClusteringWithParams(params).Fit(data)
	if err != nil {
		t.Fatal(err)
	}
	l := result.Labels
	if l[0] != l[1] || l[1] != l[2] || l[3] != l[4] || l[4] != l[5] || l[0] == l[3] {
		t.Errorf("labels = %v, want two groups of three", l)
	}
	if len(result.Centers) != 2 || result.Inertia > 1 {
		t.Errorf("centers = %v, inertia = %v", result.Centers, result.Inertia)
	}

	again, err := NewClusteringWithParams(params).Fit(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(again.Labels, result.Labels) {
		t.Errorf("same seed gave %v then %v", result.Labels, again.Labels)
	}
}

func TestClusteringErrors(t *testing.T) {
	if _, err := NewClustering().Fit(nil); err == nil {
		t.Error("expected error for empty data")
	}
	if _, err := NewClusteringWithParams(ClusteringParams{NumClusters: 3}).Fit([][]float64{{1}, {2}}); err == nil {
		t.Error("expected error for more clusters than points")
	}
}
