// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package core

// Constraints are the hard (inviolable) bounds for a garden layout.
// The numeric ranges reflect what is feasible for urban gardens in the target
// region; see the planning documentation for their derivation.
type Constraints struct {
	// MaxArea is the available area in m², between 1 and 5.
	MaxArea float64
	// MaxWaterWeekly is the water budget in liters per week, between 80 and 200.
	MaxWaterWeekly float64
	// MaxBudget is the monetary budget, between 200 and 800.
	MaxBudget float64
	// MaintenanceWeekly is the available maintenance time in minutes per week,
	// at least 30.
	MaintenanceWeekly int
}

// NewConstraints validates the given bounds. Violations are surfaced as
// InvalidInputError, never clamped.
func NewConstraints(maxArea, maxWaterWeekly, maxBudget float64, maintenanceWeekly int) (Constraints, error) {
	if maxArea < 1.0 || maxArea > 5.0 {
		return Constraints{}, InvalidInputf("area", "must be between 1 and 5 m², got %g", maxArea)
	}
	if maxWaterWeekly < 80 || maxWaterWeekly > 200 {
		return Constraints{}, InvalidInputf("maxWater", "must be between 80 and 200 liters per week, got %g", maxWaterWeekly)
	}
	if maxBudget < 200 || maxBudget > 800 {
		return Constraints{}, InvalidInputf("budget", "must be between 200 and 800, got %g", maxBudget)
	}
	if maintenanceWeekly < 30 {
		return Constraints{}, InvalidInputf("maintenanceTime", "must be at least 30 minutes per week, got %d", maintenanceWeekly)
	}
	return Constraints{
		MaxArea:           maxArea,
		MaxWaterWeekly:    maxWaterWeekly,
		MaxBudget:         maxBudget,
		MaintenanceWeekly: maintenanceWeekly,
	}, nil
}
