// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package optimizer_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapcc/plantgen/internal/core"
	"github.com/sapcc/plantgen/internal/optimizer"
	"github.com/sapcc/plantgen/internal/test"
)

func defaultConstraints(t *testing.T) core.Constraints {
	t.Helper()
	constraints, err := core.NewConstraints(2.0, 80, 400, 90)
	require.NoError(t, err)
	return constraints
}

func mustLayout(t *testing.T, width, height float64, grid [][]int) *optimizer.Layout {
	t.Helper()
	layout, err := optimizer.NewLayout(width, height, grid)
	require.NoError(t, err)
	return layout
}

func TestMetricsStayInUnitInterval(t *testing.T) {
	eval := optimizer.NewEvaluator(test.StandardCatalog(), core.ObjectiveAlimenticio, defaultConstraints(t))

	layouts := []*optimizer.Layout{
		mustLayout(t, 2, 1, [][]int{{0, 0, 0}, {0, 0, 0}}),
		mustLayout(t, 2, 1, [][]int{{1, 2, 3}, {4, 5, 6}}),
		mustLayout(t, 1, 2, [][]int{{1, 1}, {1, 1}, {1, 1}}),
		mustLayout(t, 2, 2.5, [][]int{{10, 11, 12}, {7, 8, 9}, {1, 0, 2}}),
	}
	for idx, layout := range layouts {
		eval.Evaluate(layout)
		for name, value := range map[string]float64{
			"cee": layout.CEE, "psntpa": layout.PSNTPA, "wce": layout.WCE, "ue": layout.UE, "fitness": layout.Fitness,
		} {
			assert.GreaterOrEqualf(t, value, 0.0, "layout %d: %s below 0", idx, name)
			assert.LessOrEqualf(t, value, 1.0, "layout %d: %s above 1", idx, name)
		}
	}
}

func TestWaterEfficiencyHardZeroAboveBudget(t *testing.T) {
	eval := optimizer.NewEvaluator(test.StandardCatalog(), core.ObjectiveAlimenticio, defaultConstraints(t))

	// 14 tomato plants need 84 L/week, which exceeds the 80 L budget
	grid := [][]int{make([]int, 14)}
	for c := range grid[0] {
		grid[0][c] = 1
	}
	layout := mustLayout(t, 2, 1, grid)
	eval.Evaluate(layout)
	assert.Equal(t, 0.0, layout.WCE)

	// 13 tomato plants need 78 L/week, which stays within budget
	layout = mustLayout(t, 2, 1, [][]int{grid[0][:13]})
	eval.Evaluate(layout)
	assert.InDelta(t, 1-78.0/80.0, layout.WCE, 1e-9)
}

func TestSpaceUtilizationPiecewise(t *testing.T) {
	eval := optimizer.NewEvaluator(test.StandardCatalog(), core.ObjectiveAlimenticio, defaultConstraints(t))

	// 4 tomato plants occupy 1.0 m² of 2 m²: U = 0.5, below the 0.85 peak
	layout := mustLayout(t, 2, 1, [][]int{{1, 1, 1, 1}})
	eval.Evaluate(layout)
	assert.InDelta(t, 0.5/0.85, layout.UE, 1e-9)

	// 17 carrot plants occupy exactly 0.85 m² of 1 m²: the peak
	grid := [][]int{make([]int, 17)}
	for c := range grid[0] {
		grid[0][c] = 3
	}
	layout = mustLayout(t, 1, 1, grid)
	eval.Evaluate(layout)
	assert.InDelta(t, 1.0, layout.UE, 1e-9)

	// 19 carrot plants occupy 0.95 m² of 1 m²: past the peak, penalized
	grid = [][]int{make([]int, 19)}
	for c := range grid[0] {
		grid[0][c] = 3
	}
	layout = mustLayout(t, 1, 1, grid)
	eval.Evaluate(layout)
	assert.InDelta(t, 1-2*(0.95-0.85), layout.UE, 1e-9)
}

func TestCompatibilityNeighborSymmetry(t *testing.T) {
	eval := optimizer.NewEvaluator(test.StandardCatalog(), core.ObjectiveAlimenticio, defaultConstraints(t))

	// tomate (1) next to albahaca (9): compatibility 0.9 in either order
	left := mustLayout(t, 2, 1, [][]int{{1, 9}})
	right := mustLayout(t, 2, 1, [][]int{{9, 1}})
	eval.Evaluate(left)
	eval.Evaluate(right)
	assert.Equal(t, left.CEE, right.CEE)
	assert.InDelta(t, 0.9, left.CEE, 1e-9)
}

func TestCompatibilityDistanceWeighting(t *testing.T) {
	eval := optimizer.NewEvaluator(test.StandardCatalog(), core.ObjectiveAlimenticio, defaultConstraints(t))

	// tomate (1) and chile (5) clash (-0.4), but negatives clamp to 0
	layout := mustLayout(t, 2, 1, [][]int{{1, 5}})
	eval.Evaluate(layout)
	assert.Equal(t, 0.0, layout.CEE)

	// diagonal-only pair: weight exp(-sqrt2/1.5), same clamped average
	layout = mustLayout(t, 2, 1, [][]int{{1, 0}, {0, 9}})
	eval.Evaluate(layout)
	assert.InDelta(t, 0.9, layout.CEE, 1e-9)
}

func TestSatisfactionPrefersObjectiveType(t *testing.T) {
	constraints := defaultConstraints(t)
	catalog := test.StandardCatalog()

	// all-vegetable layout vs all-ornamental layout under alimenticio
	vegetables := mustLayout(t, 2, 1, [][]int{{1, 2}, {3, 4}})
	ornamentals := mustLayout(t, 2, 1, [][]int{{10, 11}, {12, 10}})

	eval := optimizer.NewEvaluator(catalog, core.ObjectiveAlimenticio, constraints)
	eval.Evaluate(vegetables)
	eval.Evaluate(ornamentals)
	assert.Greater(t, vegetables.PSNTPA, ornamentals.PSNTPA)

	// under ornamental the preference flips
	eval = optimizer.NewEvaluator(catalog, core.ObjectiveOrnamental, constraints)
	eval.Evaluate(vegetables)
	eval.Evaluate(ornamentals)
	assert.Greater(t, ornamentals.PSNTPA, vegetables.PSNTPA)
}

func TestEvaluateTotals(t *testing.T) {
	eval := optimizer.NewEvaluator(test.StandardCatalog(), core.ObjectiveAlimenticio, defaultConstraints(t))

	// 2x tomate (water 6, size 0.25, harvest 80) + 1x lechuga (water 3, size 0.1, harvest 50)
	layout := mustLayout(t, 2, 1, [][]int{{1, 1, 2}})
	assert.InDelta(t, 15.0, eval.WeeklyWaterUse(layout), 1e-9)
	assert.InDelta(t, 0.6, eval.UsedArea(layout), 1e-9)
	assert.InDelta(t, 2*0.25*50+0.1*50, eval.TotalCost(layout), 1e-9)
	wantProduction := 2*0.25*10*0.8 + 0.1*10*0.5
	assert.InDelta(t, wantProduction, eval.TotalProductionPerCycle(layout), 1e-9)
}

func TestAggregateUsesObjectiveWeights(t *testing.T) {
	eval := optimizer.NewEvaluator(test.StandardCatalog(), core.ObjectiveSostenible, defaultConstraints(t))
	layout := mustLayout(t, 2, 1, [][]int{{1, 9, 2}})
	eval.Evaluate(layout)

	weights := core.ObjectiveSostenible.Weights()
	want := weights.CEE*layout.CEE + weights.PSNTPA*layout.PSNTPA + weights.WCE*layout.WCE + weights.UE*layout.UE
	assert.InDelta(t, want, layout.Fitness, 1e-12)
	assert.False(t, math.IsNaN(layout.Fitness))
}
