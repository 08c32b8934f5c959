// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"math"
	"math/rand"

	"github.com/sapcc/go-bits/logg"
)

// KSelectionMethod chooses how the k sweep is scored.
type KSelectionMethod string

const (
	// MethodSilhouette picks the k with the best silhouette score.
	MethodSilhouette KSelectionMethod = "silhouette"
	// MethodElbow picks the k at the largest absolute first difference of
	// clustering costs.
	MethodElbow KSelectionMethod = "elbow"
)

// sweepInitCount is the reduced multi-start budget used during the k sweep.
// The final fit uses the full budget.
const sweepInitCount = 5

// SelectK sweeps k in [kMin, min(kMax, N/10)] and returns the best cluster
// count for the given data. For tiny datasets where the sweep range is empty,
// kMin is returned without search.
func SelectK(numeric [][]float64, categorical [][]int, kMin, kMax int, method KSelectionMethod, rng *rand.Rand) int {
	if limit := len(numeric) / 10; kMax > limit {
		kMax = limit
	}
	if kMax < kMin {
		logg.Info("dataset too small for k sweep, using k=%d", kMin)
		return kMin
	}

	switch method {
	case MethodElbow:
		return selectKByElbow(numeric, categorical, kMin, kMax, rng)
	default:
		return selectKBySilhouette(numeric, categorical, kMin, kMax, rng)
	}
}

func selectKBySilhouette(numeric [][]float64, categorical [][]int, kMin, kMax int, rng *rand.Rand) int {
	bestK := kMin
	bestScore := math.Inf(-1)
	for k := kMin; k <= kMax; k++ {
		kp := KPrototypes{K: k, NInit: sweepInitCount}
		err := kp.Fit(numeric, categorical, rng)
		if err != nil {
			logg.Error("k sweep: fit with k=%d failed: %s", k, err.Error())
			continue
		}
		if countDistinct(kp.Labels) < 2 {
			continue
		}
		score := Silhouette(numeric, kp.Labels)
		logg.Debug("k sweep: k=%d silhouette=%.4f", k, score)
		if score > bestScore {
			bestScore = score
			bestK = k
		}
	}
	logg.Info("k sweep: optimal k=%d (silhouette=%.4f)", bestK, bestScore)
	return bestK
}

func selectKByElbow(numeric [][]float64, categorical [][]int, kMin, kMax int, rng *rand.Rand) int {
	var costs []float64
	for k := kMin; k <= kMax; k++ {
		kp := KPrototypes{K: k, NInit: sweepInitCount}
		err := kp.Fit(numeric, categorical, rng)
		if err != nil {
			logg.Error("k sweep: fit with k=%d failed: %s", k, err.Error())
			costs = append(costs, math.NaN())
			continue
		}
		logg.Debug("k sweep: k=%d cost=%.4f", k, kp.Cost)
		costs = append(costs, kp.Cost)
	}

	bestK := kMin
	bestDiff := math.Inf(-1)
	for i := 1; i < len(costs); i++ {
		if math.IsNaN(costs[i]) || math.IsNaN(costs[i-1]) {
			continue
		}
		diff := math.Abs(costs[i] - costs[i-1])
		if diff > bestDiff {
			bestDiff = diff
			bestK = kMin + i
		}
	}
	logg.Info("k sweep: optimal k=%d (elbow)", bestK)
	return bestK
}

func countDistinct(labels []int) int {
	seen := make(map[int]struct{}, len(labels))
	for _, label := range labels {
		seen[label] = struct{}{}
	}
	return len(seen)
}
