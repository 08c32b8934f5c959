// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"fmt"

	"github.com/sapcc/go-bits/must"

	"github.com/sapcc/plantgen/internal/core"
)

// StandardPlants returns a small but diverse catalog for tests. Values are
// chosen such that several plants fit into a 2 m² garden within the default
// water and cost budgets.
func StandardPlants() []core.Plant {
	return []core.Plant{
		{ID: 1, Species: "tomate", ScientificName: "Solanum lycopersicum", Types: []string{core.PlantTypeVegetable}, SunRequirement: core.SunRequirementHigh, WeeklyWaterLiters: 6, HarvestDays: 80, SoilType: "franco", WaterPerKg: 30, Benefits: []string{"vitamina C"}, Size: 0.25},
		{ID: 2, Species: "lechuga", ScientificName: "Lactuca sativa", Types: []string{core.PlantTypeVegetable}, SunRequirement: core.SunRequirementMedium, WeeklyWaterLiters: 3, HarvestDays: 50, SoilType: "franco", WaterPerKg: 25, Benefits: []string{"fibra"}, Size: 0.1},
		{ID: 3, Species: "zanahoria", ScientificName: "Daucus carota", Types: []string{core.PlantTypeVegetable}, SunRequirement: core.SunRequirementMedium, WeeklyWaterLiters: 4, HarvestDays: 70, SoilType: "arenoso", WaterPerKg: 20, Benefits: []string{"vitamina A"}, Size: 0.05},
		{ID: 4, Species: "frijol", ScientificName: "Phaseolus vulgaris", Types: []string{core.PlantTypeVegetable}, SunRequirement: core.SunRequirementHigh, WeeklyWaterLiters: 5, HarvestDays: 90, SoilType: "franco", WaterPerKg: 40, Benefits: []string{"proteína"}, Size: 0.15},
		{ID: 5, Species: "chile", ScientificName: "Capsicum annuum", Types: []string{core.PlantTypeVegetable}, SunRequirement: core.SunRequirementHigh, WeeklyWaterLiters: 5, HarvestDays: 85, SoilType: "franco", WaterPerKg: 35, Benefits: []string{"capsaicina"}, Size: 0.2},
		{ID: 6, Species: "manzanilla", ScientificName: "Matricaria chamomilla", Types: []string{core.PlantTypeMedicinal, core.PlantTypeAromatic}, SunRequirement: core.SunRequirementMedium, WeeklyWaterLiters: 2, HarvestDays: 60, SoilType: "franco", WaterPerKg: 15, Benefits: []string{"digestiva"}, Size: 0.05},
		{ID: 7, Species: "sábila", ScientificName: "Aloe vera", Types: []string{core.PlantTypeMedicinal}, SunRequirement: core.SunRequirementHigh, WeeklyWaterLiters: 1, HarvestDays: 120, SoilType: "arenoso", WaterPerKg: 10, Benefits: []string{"cicatrizante"}, Size: 0.2},
		{ID: 8, Species: "hierbabuena", ScientificName: "Mentha spicata", Types: []string{core.PlantTypeMedicinal, core.PlantTypeAromatic}, SunRequirement: core.SunRequirementLow, WeeklyWaterLiters: 3, HarvestDays: 45, SoilType: "franco", WaterPerKg: 12, Benefits: []string{"digestiva"}, Size: 0.08},
		{ID: 9, Species: "albahaca", ScientificName: "Ocimum basilicum", Types: []string{core.PlantTypeAromatic}, SunRequirement: core.SunRequirementHigh, WeeklyWaterLiters: 3, HarvestDays: 55, SoilType: "franco", WaterPerKg: 18, Benefits: []string{"repelente"}, Size: 0.1},
		{ID: 10, Species: "cempasúchil", ScientificName: "Tagetes erecta", Types: []string{core.PlantTypeOrnamental}, SunRequirement: core.SunRequirementHigh, WeeklyWaterLiters: 3, HarvestDays: 75, SoilType: "franco", WaterPerKg: 22, Benefits: []string{"polinizadores"}, Size: 0.12},
		{ID: 11, Species: "girasol", ScientificName: "Helianthus annuus", Types: []string{core.PlantTypeOrnamental}, SunRequirement: core.SunRequirementHigh, WeeklyWaterLiters: 6, HarvestDays: 95, SoilType: "franco", WaterPerKg: 45, Benefits: []string{"polinizadores"}, Size: 0.3},
		{ID: 12, Species: "lavanda", ScientificName: "Lavandula angustifolia", Types: []string{core.PlantTypeOrnamental, core.PlantTypeAromatic}, SunRequirement: core.SunRequirementHigh, WeeklyWaterLiters: 2, HarvestDays: 110, SoilType: "arenoso", WaterPerKg: 14, Benefits: []string{"relajante"}, Size: 0.15},
	}
}

// StandardPairs returns compatibility values for the StandardPlants catalog.
// Unlisted pairs score 0.
func StandardPairs() []core.CompatibilityPair {
	return []core.CompatibilityPair{
		{SpeciesA: "albahaca", SpeciesB: "tomate", Compatibility: 0.9},
		{SpeciesA: "lechuga", SpeciesB: "zanahoria", Compatibility: 0.7},
		{SpeciesA: "frijol", SpeciesB: "tomate", Compatibility: 0.5},
		{SpeciesA: "chile", SpeciesB: "tomate", Compatibility: -0.4},
		{SpeciesA: "cempasúchil", SpeciesB: "tomate", Compatibility: 0.8},
		{SpeciesA: "frijol", SpeciesB: "girasol", Compatibility: -0.6},
		{SpeciesA: "hierbabuena", SpeciesB: "manzanilla", Compatibility: 0.6},
		{SpeciesA: "lavanda", SpeciesB: "manzanilla", Compatibility: 0.4},
	}
}

// StandardCatalog builds the test catalog from StandardPlants and
// StandardPairs.
func StandardCatalog() *core.Catalog {
	return must.Return(core.NewCatalog(StandardPlants(), StandardPairs()))
}

// NewUserDocument builds a user document in the shape synced from the app
// backend. An empty token omits the tokenFCM key.
func NewUserDocument(token string, experienceLevel int, createdAt string) map[string]any {
	doc := map[string]any{
		"experience_level": experienceLevel,
		"createdAt":        createdAt,
	}
	if token != "" {
		doc["tokenFCM"] = token
	}
	return doc
}

// NewGardenDocument builds a garden document with the canonical layout and
// estimation fields.
func NewGardenDocument(objective string, area, weeklyWater, maintenance float64, countPlants int, breakdown map[string]float64) map[string]any {
	return map[string]any{
		"name":        fmt.Sprintf("Huerto %s", objective),
		"description": "Huerto de prueba",
		"objective":   objective,
		"countPlants": countPlants,
		"layout": map[string]any{
			"dimensions":        map[string]any{"totalArea": area},
			"categoryBreakdown": toAnyMap(breakdown),
		},
		"estimations": map[string]any{
			"weeklyWaterLiters":         weeklyWater,
			"maintenanceMinutesPerWeek": maintenance,
			"fitness":                   0.7,
		},
		"metadata": map[string]any{
			"inputParameters": map[string]any{
				"objective": objective,
				"location":  map[string]any{"lat": 16.75, "lon": -93.11},
			},
		},
	}
}

func toAnyMap(values map[string]float64) map[string]any {
	result := make(map[string]any, len(values))
	for key, value := range values {
		result[key] = value
	}
	return result
}
