// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package optimizer

import (
	"math"

	"github.com/sapcc/plantgen/internal/core"
)

// compatSigma is the length scale (in meters) for the distance weighting of
// neighbor pairs in the compatibility metric.
const compatSigma = 1.5

// CostPerPlant returns the estimated purchase cost of one specimen.
func CostPerPlant(p core.Plant) float64 {
	return p.Size * 50
}

// MaintenanceMinutesPerPlant is the estimated weekly maintenance effort for
// one placed plant.
const MaintenanceMinutesPerPlant = 15

// Evaluator computes the four component metrics and the weighted aggregate
// fitness for layouts. It is pure with respect to the shared catalog, so one
// instance can score many layouts, also concurrently.
type Evaluator struct {
	catalog     *core.Catalog
	objective   core.ObjectiveType
	constraints core.Constraints
	weights     core.FitnessWeights
}

// NewEvaluator builds an Evaluator for the given objective and constraints.
func NewEvaluator(catalog *core.Catalog, objective core.ObjectiveType, constraints core.Constraints) *Evaluator {
	return &Evaluator{
		catalog:     catalog,
		objective:   objective,
		constraints: constraints,
		weights:     objective.Weights(),
	}
}

// Evaluate computes all metrics and stores them on the layout. Cells with
// unknown plant IDs contribute nothing; evaluation never fails.
func (e *Evaluator) Evaluate(l *Layout) {
	l.CEE = e.compatibility(l)
	l.PSNTPA = e.satisfaction(l)
	l.WCE = e.waterEfficiency(l)
	l.UE = e.spaceUtilization(l)
	l.Fitness = e.weights.CEE*l.CEE + e.weights.PSNTPA*l.PSNTPA + e.weights.WCE*l.WCE + e.weights.UE*l.UE
}

// compatibility scores how well spatially adjacent species get along.
// Each present neighbor pair is weighted by exp(-d/sigma); the result is the
// weighted average compatibility, clamped into [0,1].
func (e *Evaluator) compatibility(l *Layout) float64 {
	rows, cols := l.Rows(), l.Cols()
	if rows == 0 || cols == 0 {
		return 0
	}

	// right, down, down-right diagonal; each pair is visited exactly once
	neighborOffsets := []struct {
		dr, dc   int
		distance float64
	}{
		{0, 1, 1.0},
		{1, 0, 1.0},
		{1, 1, math.Sqrt2},
	}

	var weightedSum, weightTotal float64
	for r := range rows {
		for c := range cols {
			cell := l.Grid[r][c]
			if cell == EmptyCell {
				continue
			}
			for _, offset := range neighborOffsets {
				nr, nc := r+offset.dr, c+offset.dc
				if nr >= rows || nc >= cols {
					continue
				}
				neighbor := l.Grid[nr][nc]
				if neighbor == EmptyCell {
					continue
				}
				weight := math.Exp(-offset.distance / compatSigma)
				weightedSum += weight * e.catalog.Compatibility(cell, neighbor)
				weightTotal += weight
			}
		}
	}

	if weightTotal == 0 {
		return 0
	}
	return clamp01(weightedSum / weightTotal)
}

// satisfaction scores nutritional/therapeutic yield: half by count-weighted
// estimated production against a 10 kg goal, half by the share of distinct
// species matching the objective's preferred plant type.
func (e *Evaluator) satisfaction(l *Layout) float64 {
	counts := l.PlantCounts()
	if len(counts) == 0 {
		return 0
	}

	preferredType := e.objective.PreferredPlantType()
	var production float64
	preferredSpecies := 0
	for id, count := range counts {
		plant, ok := e.catalog.PlantByID(id)
		if !ok {
			continue
		}
		production += plant.ProductionPerCycle() * float64(count)
		if plant.HasType(preferredType) {
			preferredSpecies++
		}
	}

	productionFactor := math.Min(production/10.0, 1.0)
	typeFactor := math.Min(float64(preferredSpecies)/float64(len(counts)), 1.0)
	return 0.5*productionFactor + 0.5*typeFactor
}

// waterEfficiency scores weekly water usage against the budget. Exceeding
// the budget is a hard zero.
func (e *Evaluator) waterEfficiency(l *Layout) float64 {
	water := e.WeeklyWaterUse(l)
	if water > e.constraints.MaxWaterWeekly {
		return 0
	}
	return clamp01(1 - water/e.constraints.MaxWaterWeekly)
}

// spaceUtilization scores occupied area, with the optimum at 85% of the
// garden area and a steep linear penalty above it.
func (e *Evaluator) spaceUtilization(l *Layout) float64 {
	area := l.Area()
	if area == 0 {
		return 0
	}
	utilization := e.UsedArea(l) / area
	if utilization > 0.85 {
		return math.Max(0, 1-2*(utilization-0.85))
	}
	return math.Min(1, utilization/0.85)
}

// WeeklyWaterUse sums the weekly water demand of all placed plants in liters.
func (e *Evaluator) WeeklyWaterUse(l *Layout) float64 {
	var water float64
	for id, count := range l.PlantCounts() {
		if plant, ok := e.catalog.PlantByID(id); ok {
			water += plant.WeeklyWaterLiters * float64(count)
		}
	}
	return water
}

// UsedArea sums the footprint of all placed plants in m².
func (e *Evaluator) UsedArea(l *Layout) float64 {
	var used float64
	for id, count := range l.PlantCounts() {
		if plant, ok := e.catalog.PlantByID(id); ok {
			used += plant.Size * float64(count)
		}
	}
	return used
}

// TotalCost sums the estimated purchase cost of all placed plants.
func (e *Evaluator) TotalCost(l *Layout) float64 {
	var cost float64
	for id, count := range l.PlantCounts() {
		if plant, ok := e.catalog.PlantByID(id); ok {
			cost += CostPerPlant(plant) * float64(count)
		}
	}
	return cost
}

// TotalProductionPerCycle sums the estimated yield of all placed plants in kg
// per cycle.
func (e *Evaluator) TotalProductionPerCycle(l *Layout) float64 {
	var production float64
	for id, count := range l.PlantCounts() {
		if plant, ok := e.catalog.PlantByID(id); ok {
			production += plant.ProductionPerCycle() * float64(count)
		}
	}
	return production
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
