// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package clustering

import "math"

// Silhouette computes the mean silhouette coefficient over all points, using
// Euclidean distances on the numeric block only. Categorical mismatch terms
// make the score unstable, so they are excluded.
//
// Points in singleton clusters score 0. If there are fewer than 2 distinct
// labels, the result is 0.
func Silhouette(numeric [][]float64, labels []int) float64 {
	n := len(numeric)
	if n == 0 {
		return 0
	}

	clusterSizes := make(map[int]int)
	for _, label := range labels {
		clusterSizes[label]++
	}
	if len(clusterSizes) < 2 {
		return 0
	}

	var total float64
	for i := range numeric {
		// mean distance to every cluster
		distanceSums := make(map[int]float64, len(clusterSizes))
		for j := range numeric {
			if i == j {
				continue
			}
			distanceSums[labels[j]] += math.Sqrt(squaredEuclidean(numeric[i], numeric[j]))
		}

		own := labels[i]
		if clusterSizes[own] <= 1 {
			continue // contributes 0
		}
		a := distanceSums[own] / float64(clusterSizes[own]-1)

		b := math.Inf(1)
		for label, size := range clusterSizes {
			if label == own || size == 0 {
				continue
			}
			mean := distanceSums[label] / float64(size)
			if mean < b {
				b = mean
			}
		}

		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(n)
}
