// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"math"
	"math/rand"

	"github.com/sapcc/plantgen/internal/core"
)

// KMeans is a plain k-means clusterer over purely numeric data. Its main job
// here is discretizing user geolocations into region IDs; it also provides
// the numeric half of the Huang initialization for KPrototypes.
type KMeans struct {
	K             int         `json:"k"`
	MaxIterations int         `json:"-"`
	Centroids     [][]float64 `json:"centroids"`
}

// defaultMaxIterations caps the reassignment loop of both KMeans and
// KPrototypes.
const defaultMaxIterations = 100

// Fit runs Lloyd iterations until no assignment changes or the iteration cap
// is hit. Initialization picks K distinct random points as centroids.
func (km *KMeans) Fit(matrix [][]float64, rng *rand.Rand) error {
	if km.K < 1 {
		return core.InvalidInputf("kmeans.k", "must be positive, got %d", km.K)
	}
	if len(matrix) < km.K {
		return core.InsufficientDataError{What: "points for k-means", Have: len(matrix), Need: km.K}
	}
	maxIterations := km.MaxIterations
	if maxIterations == 0 {
		maxIterations = defaultMaxIterations
	}

	km.Centroids = make([][]float64, km.K)
	for i, idx := range rng.Perm(len(matrix))[:km.K] {
		centroid := make([]float64, len(matrix[idx]))
		copy(centroid, matrix[idx])
		km.Centroids[i] = centroid
	}

	labels := make([]int, len(matrix))
	for i := range labels {
		labels[i] = -1
	}
	for range maxIterations {
		changed := false
		for i, point := range matrix {
			label := km.Predict(point)
			if label != labels[i] {
				labels[i] = label
				changed = true
			}
		}
		if !changed {
			break
		}
		km.recomputeCentroids(matrix, labels, rng)
	}
	return nil
}

func (km *KMeans) recomputeCentroids(matrix [][]float64, labels []int, rng *rand.Rand) {
	featureCount := len(matrix[0])
	sums := make([][]float64, km.K)
	counts := make([]int, km.K)
	for i := range sums {
		sums[i] = make([]float64, featureCount)
	}
	for i, point := range matrix {
		label := labels[i]
		counts[label]++
		for f, value := range point {
			sums[label][f] += value
		}
	}
	for c := range km.K {
		if counts[c] == 0 {
			// reseed empty clusters with a random point to keep K stable
			copy(km.Centroids[c], matrix[rng.Intn(len(matrix))])
			continue
		}
		for f := range featureCount {
			km.Centroids[c][f] = sums[c][f] / float64(counts[c])
		}
	}
}

// Predict returns the index of the nearest centroid.
func (km *KMeans) Predict(point []float64) int {
	best := 0
	bestDistance := math.Inf(1)
	for c, centroid := range km.Centroids {
		distance := squaredEuclidean(point, centroid)
		if distance < bestDistance {
			bestDistance = distance
			best = c
		}
	}
	return best
}

// PredictAll returns the nearest-centroid label for every row.
func (km *KMeans) PredictAll(matrix [][]float64) []int {
	labels := make([]int, len(matrix))
	for i, point := range matrix {
		labels[i] = km.Predict(point)
	}
	return labels
}

func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		delta := a[i] - b[i]
		sum += delta * delta
	}
	return sum
}
