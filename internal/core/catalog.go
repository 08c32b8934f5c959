// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"math"
	"slices"
)

// Valid plant types. A plant can belong to several of these at once.
const (
	PlantTypeVegetable  = "vegetable"
	PlantTypeMedicinal  = "medicinal"
	PlantTypeAromatic   = "aromatic"
	PlantTypeOrnamental = "ornamental"
)

// Valid sun requirement levels.
const (
	SunRequirementHigh   = "high"
	SunRequirementMedium = "medium"
	SunRequirementLow    = "low"
)

// MinPlantsForOptimization is the minimum catalog size that the optimizer
// accepts. Below this, searches degenerate into near-uniform layouts.
const MinPlantsForOptimization = 10

// Plant is one species available for placement in a garden. Instances are
// loaded once at startup and are immutable afterwards.
type Plant struct {
	ID                int      `json:"id"`
	Species           string   `json:"species"`
	ScientificName    string   `json:"scientificName"`
	Types             []string `json:"type"`
	SunRequirement    string   `json:"sunRequirement"`
	WeeklyWaterLiters float64  `json:"weeklyWaterLiters"`
	HarvestDays       int      `json:"harvestDays"`
	SoilType          string   `json:"soilType"`
	WaterPerKg        float64  `json:"waterPerKg"`
	Benefits          []string `json:"benefits"`
	Size              float64  `json:"size"`
}

// Validate returns an InvalidInputError if any field violates its domain
// invariant. Violations are reported, never clamped.
func (p Plant) Validate() error {
	if p.ID < 1 || p.ID > 50 {
		return InvalidInputf("plant.id", "must be between 1 and 50, got %d", p.ID)
	}
	if p.Species == "" {
		return InvalidInputf("plant.species", "must not be empty")
	}
	if p.Size <= 0 {
		return InvalidInputf("plant.size", "must be positive, got %g", p.Size)
	}
	if p.WeeklyWaterLiters < 0 {
		return InvalidInputf("plant.weeklyWaterLiters", "must not be negative, got %g", p.WeeklyWaterLiters)
	}
	if p.HarvestDays <= 0 {
		return InvalidInputf("plant.harvestDays", "must be positive, got %d", p.HarvestDays)
	}
	switch p.SunRequirement {
	case SunRequirementHigh, SunRequirementMedium, SunRequirementLow:
	default:
		return InvalidInputf("plant.sunRequirement", "unknown value %q", p.SunRequirement)
	}
	for _, t := range p.Types {
		switch t {
		case PlantTypeVegetable, PlantTypeMedicinal, PlantTypeAromatic, PlantTypeOrnamental:
		default:
			return InvalidInputf("plant.type", "unknown plant type %q", t)
		}
	}
	return nil
}

// HasType returns whether this plant belongs to the given type. The empty
// type matches nothing.
func (p Plant) HasType(plantType string) bool {
	return plantType != "" && slices.Contains(p.Types, plantType)
}

// ProductionPerCycle estimates the harvest yield of one specimen in kg per
// cycle. Larger plants with longer cycles produce more, capped at 1.5x the
// base rate of 10 kg/m².
func (p Plant) ProductionPerCycle() float64 {
	timeFactor := math.Min(float64(p.HarvestDays)/100, 1.5)
	return p.Size * 10 * timeFactor
}

// CompatibilityPair records how well two species grow next to each other.
// Pairs are canonicalized such that SpeciesA <= SpeciesB lexicographically.
type CompatibilityPair struct {
	SpeciesA      string  `json:"plant1"`
	SpeciesB      string  `json:"plant2"`
	Compatibility float64 `json:"compatibility"`
}

// Canonicalized returns a copy with the species ordered lexicographically.
func (p CompatibilityPair) Canonicalized() CompatibilityPair {
	if p.SpeciesA > p.SpeciesB {
		p.SpeciesA, p.SpeciesB = p.SpeciesB, p.SpeciesA
	}
	return p
}

// Validate returns an InvalidInputError if the compatibility value is out of
// range.
func (p CompatibilityPair) Validate() error {
	if p.SpeciesA == "" || p.SpeciesB == "" {
		return InvalidInputf("compatibility.species", "must not be empty")
	}
	if p.Compatibility < -1 || p.Compatibility > 1 {
		return InvalidInputf("compatibility.value", "must be in [-1,1], got %g", p.Compatibility)
	}
	return nil
}

// CompatibilityMatrix is the symmetric runtime lookup structure over all
// compatibility pairs. Missing pairs score 0.
type CompatibilityMatrix struct {
	values map[[2]string]float64
}

// NewCompatibilityMatrix builds the lookup structure from a pair list.
func NewCompatibilityMatrix(pairs []CompatibilityPair) (CompatibilityMatrix, error) {
	values := make(map[[2]string]float64, len(pairs))
	for _, pair := range pairs {
		err := pair.Validate()
		if err != nil {
			return CompatibilityMatrix{}, err
		}
		pair = pair.Canonicalized()
		values[[2]string{pair.SpeciesA, pair.SpeciesB}] = pair.Compatibility
	}
	return CompatibilityMatrix{values: values}, nil
}

// Get returns the compatibility between two species, in either order.
func (m CompatibilityMatrix) Get(speciesA, speciesB string) float64 {
	if speciesA > speciesB {
		speciesA, speciesB = speciesB, speciesA
	}
	return m.values[[2]string{speciesA, speciesB}]
}

// Len returns the number of stored pairs.
func (m CompatibilityMatrix) Len() int {
	return len(m.values)
}

// CatalogStore is the capability record through which the plant catalog is
// read. Implementations live in internal/db and internal/test.
type CatalogStore interface {
	ListPlants(ctx context.Context) ([]Plant, error)
	ListCompatibilities(ctx context.Context) ([]CompatibilityPair, error)
}

// Catalog is the immutable in-memory plant catalog shared by all optimizer
// runs. It is safe for concurrent use without locking after LoadCatalog.
type Catalog struct {
	Plants []Plant
	Matrix CompatibilityMatrix

	byID map[int]Plant
}

// NewCatalog validates the given records and builds the catalog.
func NewCatalog(plants []Plant, pairs []CompatibilityPair) (*Catalog, error) {
	byID := make(map[int]Plant, len(plants))
	bySpecies := make(map[string]struct{}, len(plants))
	for _, plant := range plants {
		err := plant.Validate()
		if err != nil {
			return nil, err
		}
		if _, exists := byID[plant.ID]; exists {
			return nil, InvalidInputf("plant.id", "duplicate plant ID %d", plant.ID)
		}
		if _, exists := bySpecies[plant.Species]; exists {
			return nil, InvalidInputf("plant.species", "duplicate species %q", plant.Species)
		}
		byID[plant.ID] = plant
		bySpecies[plant.Species] = struct{}{}
	}

	matrix, err := NewCompatibilityMatrix(pairs)
	if err != nil {
		return nil, err
	}
	return &Catalog{Plants: plants, Matrix: matrix, byID: byID}, nil
}

// LoadCatalog reads all plants and compatibility pairs from the store.
// Store failures are wrapped in CatalogUnavailableError.
func LoadCatalog(ctx context.Context, store CatalogStore) (*Catalog, error) {
	plants, err := store.ListPlants(ctx)
	if err != nil {
		return nil, CatalogUnavailableError{Inner: fmt.Errorf("while listing plants: %w", err)}
	}
	pairs, err := store.ListCompatibilities(ctx)
	if err != nil {
		return nil, CatalogUnavailableError{Inner: fmt.Errorf("while listing compatibility pairs: %w", err)}
	}
	return NewCatalog(plants, pairs)
}

// PlantByID returns the plant with the given ID, or false.
func (c *Catalog) PlantByID(id int) (Plant, bool) {
	plant, ok := c.byID[id]
	return plant, ok
}

// Compatibility returns the compatibility between the species of two plant
// IDs. Unknown IDs score 0.
func (c *Catalog) Compatibility(idA, idB int) float64 {
	plantA, okA := c.byID[idA]
	plantB, okB := c.byID[idB]
	if !okA || !okB {
		return 0
	}
	return c.Matrix.Get(plantA.Species, plantB.Species)
}
