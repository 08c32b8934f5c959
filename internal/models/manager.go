// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package models owns the lifecycle of the trained clustering artifact:
// loading it at startup, publishing a freshly trained one, and handing out
// the current model to request handlers without blocking them during swaps.
package models

import (
	"sync"
	"sync/atomic"

	"github.com/mohae/deepcopy"
	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/plantgen/internal/clustering"
	"github.com/sapcc/plantgen/internal/core"
)

// Manager serves the active ClusterModel. Readers get lock-free snapshots;
// writers publish a new artifact to disk first and swap the pointer only
// after the write succeeded, so a failed training run never disturbs the
// serving model.
type Manager struct {
	Dir          string
	ModelVersion string

	current atomic.Pointer[clustering.ClusterModel]
	// training serializes training runs; TryLock turns overlap into a
	// fast rejection instead of a queue.
	training sync.Mutex
}

// NewManager creates a Manager serving no model yet.
func NewManager(dir, modelVersion string) *Manager {
	return &Manager{Dir: dir, ModelVersion: modelVersion}
}

// LoadFromDisk restores the last published artifact, if any. A missing blob
// is normal on first deployment and only logged.
func (m *Manager) LoadFromDisk() error {
	model, err := loadModel(m.Dir, m.ModelVersion)
	if err != nil {
		return err
	}
	if model == nil {
		logg.Info("no stored cluster model for version %q, serving without one until first training", m.ModelVersion)
		return nil
	}
	m.current.Store(model)
	logg.Info("loaded cluster model %q (k=%d, trained at %s)", m.ModelVersion, model.K, model.TrainedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// Current returns the active model, or nil if none has been published yet.
// The returned value is shared; callers must not mutate it.
func (m *Manager) Current() *clustering.ClusterModel {
	return m.current.Load()
}

// CurrentOrError is Current with the absence turned into a typed error for
// the HTTP layer.
func (m *Manager) CurrentOrError() (*clustering.ClusterModel, error) {
	model := m.current.Load()
	if model == nil {
		return nil, core.InsufficientDataError{What: "trained cluster model", Have: 0, Need: 1}
	}
	return model, nil
}

// MetadataSnapshot returns a deep copy of the active model for endpoints that
// serialize it, so concurrent swaps cannot race the encoder.
func (m *Manager) MetadataSnapshot() *clustering.ClusterModel {
	model := m.current.Load()
	if model == nil {
		return nil
	}
	dup := deepcopy.Copy(model).(*clustering.ClusterModel)
	// deepcopy cannot see into time.Time's unexported fields
	dup.TrainedAt = model.TrainedAt
	return dup
}

// BeginTraining claims the training slot. It returns false if another
// training run is in flight; the caller reports conflict (API) or skips the
// slot (scheduler) instead of waiting.
func (m *Manager) BeginTraining() bool {
	return m.training.TryLock()
}

// EndTraining releases the slot claimed by BeginTraining.
func (m *Manager) EndTraining() {
	m.training.Unlock()
}

// Publish persists the artifact and then makes it the serving model. If the
// disk write fails, the old model keeps serving.
func (m *Manager) Publish(model *clustering.ClusterModel) error {
	err := saveModel(m.Dir, model)
	if err != nil {
		return err
	}
	m.current.Store(model)
	logg.Info("published cluster model %q (k=%d, silhouette=%.4f, %d samples)",
		model.ModelVersion, model.K, model.Silhouette, model.SampleCount)
	return nil
}
