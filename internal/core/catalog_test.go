// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlant(id int, species string) Plant {
	return Plant{
		ID:                id,
		Species:           species,
		Types:             []string{PlantTypeVegetable},
		SunRequirement:    SunRequirementHigh,
		WeeklyWaterLiters: 6,
		HarvestDays:       80,
		Size:              0.25,
	}
}

func TestPlantValidate(t *testing.T) {
	require.NoError(t, validPlant(1, "tomate").Validate())

	expectInvalid := func(mutate func(*Plant), field string) {
		t.Helper()
		plant := validPlant(1, "tomate")
		mutate(&plant)
		err := plant.Validate()
		var iie InvalidInputError
		require.ErrorAs(t, err, &iie)
		assert.Equal(t, field, iie.Field)
	}

	expectInvalid(func(p *Plant) { p.ID = 0 }, "plant.id")
	expectInvalid(func(p *Plant) { p.ID = 51 }, "plant.id")
	expectInvalid(func(p *Plant) { p.Species = "" }, "plant.species")
	expectInvalid(func(p *Plant) { p.Size = 0 }, "plant.size")
	expectInvalid(func(p *Plant) { p.WeeklyWaterLiters = -1 }, "plant.weeklyWaterLiters")
	expectInvalid(func(p *Plant) { p.HarvestDays = 0 }, "plant.harvestDays")
	expectInvalid(func(p *Plant) { p.SunRequirement = "scorching" }, "plant.sunRequirement")
	expectInvalid(func(p *Plant) { p.Types = []string{"carnivorous"} }, "plant.type")
}

func TestPlantHasType(t *testing.T) {
	plant := validPlant(1, "tomate")
	plant.Types = []string{PlantTypeVegetable, PlantTypeAromatic}

	assert.True(t, plant.HasType(PlantTypeVegetable))
	assert.True(t, plant.HasType(PlantTypeAromatic))
	assert.False(t, plant.HasType(PlantTypeMedicinal))
	assert.False(t, plant.HasType(""))
}

func TestProductionPerCycle(t *testing.T) {
	plant := validPlant(1, "tomate")

	// 0.25 m² * 10 kg/m² * 80/100
	plant.Size = 0.25
	plant.HarvestDays = 80
	assert.InDelta(t, 2.0, plant.ProductionPerCycle(), 1e-9)

	// the time factor caps at 1.5
	plant.HarvestDays = 400
	assert.InDelta(t, 0.25*10*1.5, plant.ProductionPerCycle(), 1e-9)
}

func TestCompatibilityMatrixIsSymmetric(t *testing.T) {
	matrix, err := NewCompatibilityMatrix([]CompatibilityPair{
		{SpeciesA: "tomate", SpeciesB: "albahaca", Compatibility: 0.9},
		{SpeciesA: "chile", SpeciesB: "tomate", Compatibility: -0.4},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, matrix.Len())
	assert.Equal(t, 0.9, matrix.Get("tomate", "albahaca"))
	assert.Equal(t, 0.9, matrix.Get("albahaca", "tomate"))
	assert.Equal(t, -0.4, matrix.Get("tomate", "chile"))
	assert.Equal(t, 0.0, matrix.Get("tomate", "lechuga"))
}

func TestCompatibilityPairValidate(t *testing.T) {
	err := CompatibilityPair{SpeciesA: "", SpeciesB: "tomate", Compatibility: 0.5}.Validate()
	var iie InvalidInputError
	require.ErrorAs(t, err, &iie)
	assert.Equal(t, "compatibility.species", iie.Field)

	err = CompatibilityPair{SpeciesA: "chile", SpeciesB: "tomate", Compatibility: 1.5}.Validate()
	require.ErrorAs(t, err, &iie)
	assert.Equal(t, "compatibility.value", iie.Field)
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]Plant{validPlant(1, "tomate"), validPlant(1, "chile")}, nil)
	var iie InvalidInputError
	require.ErrorAs(t, err, &iie)
	assert.Equal(t, "plant.id", iie.Field)

	_, err = NewCatalog([]Plant{validPlant(1, "tomate"), validPlant(2, "tomate")}, nil)
	require.ErrorAs(t, err, &iie)
	assert.Equal(t, "plant.species", iie.Field)
}

func TestCatalogLookups(t *testing.T) {
	catalog, err := NewCatalog(
		[]Plant{validPlant(1, "tomate"), validPlant(2, "albahaca")},
		[]CompatibilityPair{{SpeciesA: "albahaca", SpeciesB: "tomate", Compatibility: 0.9}},
	)
	require.NoError(t, err)

	plant, ok := catalog.PlantByID(1)
	require.True(t, ok)
	assert.Equal(t, "tomate", plant.Species)
	_, ok = catalog.PlantByID(42)
	assert.False(t, ok)

	assert.Equal(t, 0.9, catalog.Compatibility(1, 2))
	assert.Equal(t, 0.9, catalog.Compatibility(2, 1))
	assert.Equal(t, 0.0, catalog.Compatibility(1, 42))
}

type brokenCatalogStore struct {
	err error
}

func (s brokenCatalogStore) ListPlants(context.Context) ([]Plant, error) {
	return nil, s.err
}
func (s brokenCatalogStore) ListCompatibilities(context.Context) ([]CompatibilityPair, error) {
	return nil, s.err
}

func TestLoadCatalogWrapsStoreFailures(t *testing.T) {
	cause := errors.New("connection refused")
	_, err := LoadCatalog(context.Background(), brokenCatalogStore{err: cause})
	var cue CatalogUnavailableError
	require.ErrorAs(t, err, &cue)
	assert.ErrorIs(t, err, cause)
}
