// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapcc/plantgen/internal/clustering"
	"github.com/sapcc/plantgen/internal/core"
)

func testModel(modelVersion string) *clustering.ClusterModel {
	return &clustering.ClusterModel{
		SchemaVersion: clustering.ModelSchemaVersion,
		ModelVersion:  modelVersion,
		K:             2,
		Gamma:         1.5,
		Centroids:     [][]float64{{0, 0}, {1, 1}},
		Modes:         [][]int{{0, 0}, {1, 0}},
		Scaler: clustering.StandardScaler{
			Mean: []float64{0.5, 0.5},
			Std:  []float64{1, 1},
		},
		ObjectiveCodes:      map[string]int{"alimenticio": 0, "medicinal": 1},
		NumericFeatures:     []string{"f1", "f2"},
		CategoricalFeatures: clustering.CategoricalFeatureNames,
		Silhouette:          0.42,
		Cost:                13.37,
		ClusterSizes:        []int{7, 5},
		TrainedAt:           time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC),
		SampleCount:         12,
	}
}

func TestManagerPublishAndReload(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(dir, "v1")
	assert.Nil(t, manager.Current())

	model := testModel("v1")
	require.NoError(t, manager.Publish(model))
	assert.Same(t, model, manager.Current())

	// a fresh manager restores the artifact from disk
	reloaded := NewManager(dir, "v1")
	require.NoError(t, reloaded.LoadFromDisk())
	assert.Equal(t, model, reloaded.Current())
}

func TestManagerWithoutStoredModel(t *testing.T) {
	manager := NewManager(t.TempDir(), "v1")
	require.NoError(t, manager.LoadFromDisk())
	assert.Nil(t, manager.Current())

	_, err := manager.CurrentOrError()
	var ide core.InsufficientDataError
	require.ErrorAs(t, err, &ide)
}

func TestManagerTrainingSlot(t *testing.T) {
	manager := NewManager(t.TempDir(), "v1")

	require.True(t, manager.BeginTraining())
	assert.False(t, manager.BeginTraining())
	manager.EndTraining()
	assert.True(t, manager.BeginTraining())
	manager.EndTraining()
}

func TestManagerPublishFailureKeepsServingModel(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(dir, "v1")
	served := testModel("v1")
	require.NoError(t, manager.Publish(served))

	// make the model dir path unusable so the next save fails
	manager.Dir = filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(manager.Dir, []byte("not a dir"), 0o644))

	err := manager.Publish(testModel("v1"))
	var pe core.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Same(t, served, manager.Current())
}

func TestManagerRejectsIncompatibleSchema(t *testing.T) {
	dir := t.TempDir()
	blob := []byte(`{"schemaVersion": 999, "modelVersion": "v1", "k": 1, "centroids": [[0]], "modes": [[0]]}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model-v1.blob"), blob, 0o644))

	manager := NewManager(dir, "v1")
	err := manager.LoadFromDisk()
	var pe core.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Nil(t, manager.Current())
}

func TestManagerHotSwapUnderConcurrentReads(t *testing.T) {
	manager := NewManager(t.TempDir(), "v1")
	require.NoError(t, manager.Publish(testModel("v1")))

	stop := make(chan struct{})
	done := make(chan error)
	go func() {
		for {
			select {
			case <-stop:
				done <- nil
				return
			default:
			}
			model := manager.Current()
			if model == nil || model.K != 2 {
				done <- assert.AnError
				return
			}
		}
	}()

	// readers always observe a complete model while publishes swap it
	for range 100 {
		require.NoError(t, manager.Publish(testModel("v1")))
	}
	close(stop)
	require.NoError(t, <-done)
}

func TestManagerMetadataSnapshotIsIndependent(t *testing.T) {
	manager := NewManager(t.TempDir(), "v1")
	assert.Nil(t, manager.MetadataSnapshot())

	model := testModel("v1")
	require.NoError(t, manager.Publish(model))

	snapshot := manager.MetadataSnapshot()
	require.NotNil(t, snapshot)
	assert.Equal(t, model, snapshot)

	snapshot.Centroids[0][0] = 99
	assert.Equal(t, 0.0, model.Centroids[0][0])
}
