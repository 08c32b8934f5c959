// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapcc/plantgen/internal/core"
)

// blockCategories assigns each point a categorical value equal to its block,
// so numeric and categorical structure agree.
func blockCategories(blocks []int) [][]int {
	categorical := make([][]int, len(blocks))
	for i, block := range blocks {
		categorical[i] = []int{block}
	}
	return categorical
}

func TestKPrototypesRecoversBlocks(t *testing.T) {
	rng := rand.New(rand.NewSource(2)) //nolint:gosec // deterministic test data
	points, blocks := threeBlocks(rng, 10)
	categorical := blockCategories(blocks)

	kp := KPrototypes{K: 3}
	require.NoError(t, kp.Fit(points, categorical, rng))
	require.Len(t, kp.Centroids, 3)
	require.Len(t, kp.Modes, 3)
	require.Len(t, kp.Labels, len(points))
	assert.Greater(t, kp.Gamma, 0.0)
	assert.GreaterOrEqual(t, kp.Cost, 0.0)
	assertGrouping(t, kp.Labels, blocks)

	// Predict agrees with the training assignment
	for i := range points {
		assert.Equal(t, kp.Labels[i], kp.Predict(points[i], categorical[i]))
	}
}

func TestKPrototypesDeterminismUnderSeed(t *testing.T) {
	dataRng := rand.New(rand.NewSource(2)) //nolint:gosec // deterministic test data
	points, blocks := threeBlocks(dataRng, 10)
	categorical := blockCategories(blocks)

	fit := func() KPrototypes {
		kp := KPrototypes{K: 3}
		require.NoError(t, kp.Fit(points, categorical, rand.New(rand.NewSource(7)))) //nolint:gosec // determinism under test
		return kp
	}
	first := fit()
	second := fit()
	assert.Equal(t, first.Centroids, second.Centroids)
	assert.Equal(t, first.Modes, second.Modes)
	assert.Equal(t, first.Labels, second.Labels)
	assert.Equal(t, first.Cost, second.Cost)
}

func TestKPrototypesInputValidation(t *testing.T) {
	points := [][]float64{{1}, {2}}
	categorical := [][]int{{0}, {0}}
	rng := rand.New(rand.NewSource(1)) //nolint:gosec

	kp := KPrototypes{K: 0}
	var iie core.InvalidInputError
	require.ErrorAs(t, kp.Fit(points, categorical, rng), &iie)

	kp = KPrototypes{K: 3}
	var ide core.InsufficientDataError
	require.ErrorAs(t, kp.Fit(points, categorical, rng), &ide)
}

func TestModeOfTieBreaksTowardsSmallestValue(t *testing.T) {
	assert.Equal(t, 1, modeOf(map[int]int{2: 3, 1: 3}))
	assert.Equal(t, 2, modeOf(map[int]int{2: 4, 1: 3}))
	assert.Equal(t, 0, modeOf(map[int]int{}))
}
