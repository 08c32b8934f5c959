// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"time"

	"github.com/sapcc/plantgen/internal/core"
)

// ModelSchemaVersion is bumped whenever the on-disk model layout changes in a
// way old binaries cannot read.
const ModelSchemaVersion = 1

// ClusterModel bundles everything needed to assign a cluster to a user:
// the fitted feature pipeline, the k-prototypes prototypes, and training
// metadata for the status endpoint.
type ClusterModel struct {
	SchemaVersion int    `json:"schemaVersion"`
	ModelVersion  string `json:"modelVersion"`

	K         int         `json:"k"`
	Gamma     float64     `json:"gamma"`
	Centroids [][]float64 `json:"centroids"`
	Modes     [][]int     `json:"modes"`

	Scaler          StandardScaler `json:"scaler"`
	RegionCentroids [][]float64    `json:"regionCentroids,omitempty"`
	ObjectiveCodes  map[string]int `json:"objectiveCodes"`

	NumericFeatures     []string `json:"numericFeatures"`
	CategoricalFeatures []string `json:"categoricalFeatures"`

	Silhouette   float64   `json:"silhouette"`
	Cost         float64   `json:"cost"`
	ClusterSizes []int     `json:"clusterSizes"`
	TrainedAt    time.Time `json:"trainedAt"`
	SampleCount  int       `json:"sampleCount"`
}

// NewClusterModel assembles the artifact from a fitted pipeline and
// clusterer.
func NewClusterModel(modelVersion string, pipeline *Pipeline, kp *KPrototypes, silhouette float64, sampleCount int, trainedAt time.Time) *ClusterModel {
	model := &ClusterModel{
		SchemaVersion:       ModelSchemaVersion,
		ModelVersion:        modelVersion,
		K:                   kp.K,
		Gamma:               kp.Gamma,
		Centroids:           kp.Centroids,
		Modes:               kp.Modes,
		Scaler:              pipeline.Scaler,
		ObjectiveCodes:      pipeline.ObjectiveCodes,
		NumericFeatures:     NumericFeatureNames,
		CategoricalFeatures: CategoricalFeatureNames,
		Silhouette:          silhouette,
		Cost:                kp.Cost,
		ClusterSizes:        clusterSizes(kp.Labels, kp.K),
		TrainedAt:           trainedAt,
		SampleCount:         sampleCount,
	}
	if pipeline.Region != nil {
		model.RegionCentroids = pipeline.Region.Centroids
	}
	return model
}

// Validate rejects artifacts written by an incompatible schema.
func (m *ClusterModel) Validate() error {
	if m.SchemaVersion != ModelSchemaVersion {
		return core.InvalidInputf("schemaVersion", "expected %d, got %d", ModelSchemaVersion, m.SchemaVersion)
	}
	if m.K < 1 || len(m.Centroids) != m.K || len(m.Modes) != m.K {
		return core.InvalidInputf("k", "inconsistent prototype count for k=%d", m.K)
	}
	return nil
}

// Pipeline reconstructs the fitted feature pipeline.
func (m *ClusterModel) Pipeline() *Pipeline {
	pipeline := &Pipeline{
		Scaler:         m.Scaler,
		ObjectiveCodes: m.ObjectiveCodes,
		Fitted:         true,
	}
	if len(m.RegionCentroids) > 0 {
		pipeline.Region = &KMeans{K: len(m.RegionCentroids), Centroids: m.RegionCentroids}
	}
	return pipeline
}

// Clusterer reconstructs the fitted k-prototypes model.
func (m *ClusterModel) Clusterer() *KPrototypes {
	return &KPrototypes{
		K:         m.K,
		Gamma:     m.Gamma,
		Centroids: m.Centroids,
		Modes:     m.Modes,
	}
}

// Predict assigns the nearest cluster to one user's raw features.
func (m *ClusterModel) Predict(raw RawFeatures) (int, error) {
	numeric, categorical, err := m.Pipeline().TransformOne(raw)
	if err != nil {
		return 0, err
	}
	return m.Clusterer().Predict(numeric, categorical), nil
}

func clusterSizes(labels []int, k int) []int {
	sizes := make([]int, k)
	for _, label := range labels {
		if label >= 0 && label < k {
			sizes[label]++
		}
	}
	return sizes
}
