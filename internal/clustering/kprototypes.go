// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"math"
	"math/rand"

	"github.com/sapcc/plantgen/internal/core"
)

// KPrototypes clusters mixed numeric/categorical data. Each cluster is
// described by numeric centroids (arithmetic means) and categorical modes
// (per-feature most frequent values). The distance between a point and a
// cluster is
//
//	sum((x_num - c_num)^2) + gamma * count(x_cat != c_cat)
type KPrototypes struct {
	K int `json:"k"`
	// Gamma balances the categorical mismatch term against the numeric term.
	// When zero, Fit sets it to the mean numeric feature standard deviation.
	Gamma float64 `json:"gamma"`
	// NInit is the number of random restarts; the fit with the lowest total
	// cost wins. Defaults to 10.
	NInit         int `json:"-"`
	MaxIterations int `json:"-"`

	Centroids [][]float64 `json:"centroids"`
	Modes     [][]int     `json:"modes"`
	// Labels are the per-point cluster assignments of the last Fit.
	Labels []int `json:"-"`
	// Cost is the summed point-to-cluster distance of the last Fit; the elbow
	// selector reads it.
	Cost float64 `json:"cost"`
}

// Fit runs the full multi-start clustering. Both matrices must have the same
// row count; rows pair up into mixed-type points.
func (kp *KPrototypes) Fit(numeric [][]float64, categorical [][]int, rng *rand.Rand) error {
	if kp.K < 1 {
		return core.InvalidInputf("kprototypes.k", "must be positive, got %d", kp.K)
	}
	if len(numeric) < kp.K {
		return core.InsufficientDataError{What: "points for clustering", Have: len(numeric), Need: kp.K}
	}
	if kp.Gamma == 0 {
		kp.Gamma = meanFeatureStd(numeric)
	}
	nInit := kp.NInit
	if nInit == 0 {
		nInit = 10
	}

	bestCost := math.Inf(1)
	var bestCentroids [][]float64
	var bestModes [][]int
	var bestLabels []int
	for range nInit {
		centroids, modes, labels, cost := kp.fitOnce(numeric, categorical, rng)
		if cost < bestCost {
			bestCost = cost
			bestCentroids = centroids
			bestModes = modes
			bestLabels = labels
		}
	}

	kp.Centroids = bestCentroids
	kp.Modes = bestModes
	kp.Labels = bestLabels
	kp.Cost = bestCost
	return nil
}

// fitOnce runs one Huang-initialized Lloyd-style optimization.
func (kp *KPrototypes) fitOnce(numeric [][]float64, categorical [][]int, rng *rand.Rand) (centroids [][]float64, modes [][]int, labels []int, cost float64) {
	centroids, modes = kp.huangInit(numeric, categorical, rng)
	maxIterations := kp.MaxIterations
	if maxIterations == 0 {
		maxIterations = defaultMaxIterations
	}

	labels = make([]int, len(numeric))
	for i := range labels {
		labels[i] = -1
	}
	for range maxIterations {
		changed := false
		for i := range numeric {
			label, _ := nearestPrototype(numeric[i], categorical[i], centroids, modes, kp.Gamma)
			if label != labels[i] {
				labels[i] = label
				changed = true
			}
		}
		if !changed {
			break
		}
		kp.recomputePrototypes(numeric, categorical, labels, centroids, modes, rng)
	}

	for i := range numeric {
		_, distance := nearestPrototype(numeric[i], categorical[i], centroids, modes, kp.Gamma)
		cost += distance
	}
	return centroids, modes, labels, cost
}

// huangInit samples categorical modes by empirical frequency and numeric
// centroids uniformly from the data, which preserves diversity across
// restarts.
func (kp *KPrototypes) huangInit(numeric [][]float64, categorical [][]int, rng *rand.Rand) (centroids [][]float64, modes [][]int) {
	centroids = make([][]float64, kp.K)
	for i, idx := range rng.Perm(len(numeric))[:kp.K] {
		centroid := make([]float64, len(numeric[idx]))
		copy(centroid, numeric[idx])
		centroids[i] = centroid
	}

	catFeatureCount := 0
	if len(categorical) > 0 {
		catFeatureCount = len(categorical[0])
	}
	modes = make([][]int, kp.K)
	for c := range kp.K {
		modes[c] = make([]int, catFeatureCount)
		for f := range catFeatureCount {
			// draw by empirical frequency: a uniformly drawn row's value
			modes[c][f] = categorical[rng.Intn(len(categorical))][f]
		}
	}
	return centroids, modes
}

func (kp *KPrototypes) recomputePrototypes(numeric [][]float64, categorical [][]int, labels []int, centroids [][]float64, modes [][]int, rng *rand.Rand) {
	numFeatureCount := len(numeric[0])
	catFeatureCount := len(modes[0])

	sums := make([][]float64, kp.K)
	counts := make([]int, kp.K)
	valueCounts := make([]map[int]map[int]int, kp.K) // cluster -> feature -> value -> count
	for c := range kp.K {
		sums[c] = make([]float64, numFeatureCount)
		valueCounts[c] = make(map[int]map[int]int, catFeatureCount)
		for f := range catFeatureCount {
			valueCounts[c][f] = make(map[int]int)
		}
	}

	for i := range numeric {
		label := labels[i]
		counts[label]++
		for f, value := range numeric[i] {
			sums[label][f] += value
		}
		for f, value := range categorical[i] {
			valueCounts[label][f][value]++
		}
	}

	for c := range kp.K {
		if counts[c] == 0 {
			// steal a random point to keep all K clusters populated
			idx := rng.Intn(len(numeric))
			copy(centroids[c], numeric[idx])
			copy(modes[c], categorical[idx])
			continue
		}
		for f := range numFeatureCount {
			centroids[c][f] = sums[c][f] / float64(counts[c])
		}
		for f := range catFeatureCount {
			modes[c][f] = modeOf(valueCounts[c][f])
		}
	}
}

// Predict assigns the nearest cluster to a new mixed-type point.
func (kp *KPrototypes) Predict(numeric []float64, categorical []int) int {
	label, _ := nearestPrototype(numeric, categorical, kp.Centroids, kp.Modes, kp.Gamma)
	return label
}

func nearestPrototype(numeric []float64, categorical []int, centroids [][]float64, modes [][]int, gamma float64) (label int, distance float64) {
	distance = math.Inf(1)
	for c := range centroids {
		d := squaredEuclidean(numeric, centroids[c])
		for f, value := range categorical {
			if value != modes[c][f] {
				d += gamma
			}
		}
		if d < distance {
			distance = d
			label = c
		}
	}
	return label, distance
}

// modeOf returns the most frequent value; ties break towards the smallest
// value for determinism.
func modeOf(counts map[int]int) int {
	best := 0
	bestCount := -1
	for value, count := range counts {
		if count > bestCount || (count == bestCount && value < best) {
			best = value
			bestCount = count
		}
	}
	return best
}

func meanFeatureStd(matrix [][]float64) float64 {
	if len(matrix) == 0 {
		return 1
	}
	var scaler StandardScaler
	err := scaler.Fit(matrix)
	if err != nil {
		return 1
	}
	var sum float64
	for _, std := range scaler.Std {
		sum += std
	}
	if sum == 0 {
		return 1
	}
	return sum / float64(len(scaler.Std))
}
