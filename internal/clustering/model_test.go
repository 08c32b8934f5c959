// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterModelReconstructsPredictions(t *testing.T) {
	rng := rand.New(rand.NewSource(6)) //nolint:gosec // deterministic test data
	raw := append(
		makeRawFeatures(rng, 10, "alimenticio", 16.75, -93.11),
		makeRawFeatures(rng, 10, "medicinal", 19.43, -99.13)...,
	)

	var pipeline Pipeline
	numeric, categorical, err := pipeline.FitTransform(raw, rng)
	require.NoError(t, err)
	kp := KPrototypes{K: 2}
	require.NoError(t, kp.Fit(numeric, categorical, rng))

	trainedAt := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	model := NewClusterModel("v1", &pipeline, &kp, 0.42, len(raw), trainedAt)
	require.NoError(t, model.Validate())
	assert.Equal(t, len(raw), model.SampleCount)
	assert.Len(t, model.ClusterSizes, 2)
	assert.Equal(t, len(raw), model.ClusterSizes[0]+model.ClusterSizes[1])

	// the reconstructed pipeline and clusterer agree with the originals
	for i, features := range raw {
		predicted, err := model.Predict(features)
		require.NoError(t, err)
		assert.Equalf(t, kp.Labels[i], predicted, "training point %d got reassigned", i)
	}
}

func TestClusterModelValidateRejectsBadArtifacts(t *testing.T) {
	model := &ClusterModel{
		SchemaVersion: ModelSchemaVersion,
		K:             2,
		Centroids:     [][]float64{{0}, {1}},
		Modes:         [][]int{{0}, {0}},
	}
	require.NoError(t, model.Validate())

	model.SchemaVersion = ModelSchemaVersion + 1
	assert.Error(t, model.Validate())

	model.SchemaVersion = ModelSchemaVersion
	model.Centroids = model.Centroids[:1]
	assert.Error(t, model.Validate())
}
