// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package core

// ObjectiveType is what the user wants to get out of their garden. It selects
// the weight vector for fitness aggregation and the preferred plant type for
// the satisfaction metric.
type ObjectiveType string

const (
	ObjectiveAlimenticio ObjectiveType = "alimenticio"
	ObjectiveMedicinal   ObjectiveType = "medicinal"
	ObjectiveSostenible  ObjectiveType = "sostenible"
	ObjectiveOrnamental  ObjectiveType = "ornamental"
)

// IsValid returns whether this is a known objective.
func (o ObjectiveType) IsValid() bool {
	switch o {
	case ObjectiveAlimenticio, ObjectiveMedicinal, ObjectiveSostenible, ObjectiveOrnamental:
		return true
	default:
		return false
	}
}

// FitnessWeights is the weight vector for aggregating the four layout
// metrics. The weights of each objective sum to 1.
type FitnessWeights struct {
	CEE    float64
	PSNTPA float64
	WCE    float64
	UE     float64
}

// Weights returns the fixed weight vector for this objective. Unknown
// objectives fall back to the alimenticio weights; callers validate
// beforehand.
func (o ObjectiveType) Weights() FitnessWeights {
	switch o {
	case ObjectiveMedicinal:
		return FitnessWeights{CEE: 0.25, PSNTPA: 0.45, WCE: 0.15, UE: 0.15}
	case ObjectiveSostenible:
		return FitnessWeights{CEE: 0.25, PSNTPA: 0.20, WCE: 0.40, UE: 0.15}
	case ObjectiveOrnamental:
		return FitnessWeights{CEE: 0.20, PSNTPA: 0.40, WCE: 0.15, UE: 0.25}
	default:
		return FitnessWeights{CEE: 0.20, PSNTPA: 0.50, WCE: 0.20, UE: 0.10}
	}
}

// PreferredPlantType returns the plant type whose share feeds the diversity
// half of the satisfaction metric. The sostenible objective has no preferred
// type; all species count.
func (o ObjectiveType) PreferredPlantType() string {
	switch o {
	case ObjectiveMedicinal:
		return PlantTypeMedicinal
	case ObjectiveOrnamental:
		return PlantTypeOrnamental
	case ObjectiveSostenible:
		return ""
	default:
		return PlantTypeVegetable
	}
}
