// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sapcc/go-bits/jobloop"
	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/plantgen/internal/clustering"
	"github.com/sapcc/plantgen/internal/core"
)

// minUsersForTraining is the dataset size below which a training run refuses
// to replace the serving model.
const minUsersForTraining = 10

// trainingSeed makes scheduled training runs reproducible for a given
// dataset.
const trainingSeed = 42

// ErrTrainingOverlap is returned when a training run is requested while
// another one is still in flight.
var ErrTrainingOverlap = errors.New("a training run is already in progress")

// TrainingJob is a jobloop.CronJob.
//
// It polls the monthly retrain schedule and runs the clustering training
// when a slot has been reached that no earlier run covered.
func (c *Collector) TrainingJob(registerer prometheus.Registerer) jobloop.Job {
	return (&jobloop.CronJob{
		Metadata: jobloop.JobMetadata{
			ReadableName: "cluster model training",
			CounterOpts: prometheus.CounterOpts{
				Name: "plantgen_training_runs",
				Help: "Counts cluster model training runs.",
			},
		},
		Interval: 15 * time.Minute,
		Task:     c.trainIfScheduled,
	}).Setup(registerer)
}

func (c *Collector) trainIfScheduled(ctx context.Context, _ prometheus.Labels) error {
	now := c.TimeNow()
	slot := mostRecentMonthlySlot(now, c.Config.Schedule.RetrainDayOfMonth, c.Config.Schedule.RetrainHour)

	lastRun, ok, err := c.Store.LatestTrainingRun(ctx)
	if err != nil {
		return err
	}
	if ok && !lastRun.StartedAt.Before(slot) {
		return nil // slot already covered
	}

	_, err = c.RunTraining(ctx)
	if errors.Is(err, ErrTrainingOverlap) {
		// a manually triggered run owns the slot; it will be visible in the
		// training history on the next poll
		return nil
	}
	return err
}

// RunTraining executes one full training pass: extract features for all
// users, sweep k, fit the final model, publish it, and update the stored
// cluster assignments. Failures leave the serving model untouched and are
// recorded in the training history.
func (c *Collector) RunTraining(ctx context.Context) (core.TrainingRun, error) {
	if !c.Models.BeginTraining() {
		return core.TrainingRun{}, ErrTrainingOverlap
	}
	defer c.Models.EndTraining()

	run := core.TrainingRun{
		UUID:         uuid.Must(uuid.NewV4()).String(),
		StartedAt:    c.TimeNow(),
		ModelVersion: c.Config.Clustering.ModelVersion,
	}
	logg.Info("training run %s started (%s)", run.UUID, c.Config.Clustering.String())

	model, labels, users, err := c.train(ctx)
	run.FinishedAt = c.TimeNow()
	if err != nil {
		run.ErrorMessage = err.Error()
		if insertErr := c.Store.InsertTrainingRun(ctx, run); insertErr != nil {
			c.LogError("cannot record failed training run %s: %s", run.UUID, insertErr.Error())
		}
		return run, err
	}

	run.ClusterCount = model.K
	run.SampleCount = model.SampleCount
	run.Silhouette = model.Silhouette
	run.Cost = model.Cost
	run.ClusterSizes = model.ClusterSizes
	run.Success = true

	for i, user := range users {
		err := c.Store.SetUserCluster(ctx, user.ID, labels[i])
		if err != nil {
			// the model is already serving; a missed assignment self-heals on
			// the next run
			c.LogError("cannot store cluster of user %s: %s", user.ID, err.Error())
		}
	}

	err = c.Store.InsertTrainingRun(ctx, run)
	if err != nil {
		c.LogError("cannot record training run %s: %s", run.UUID, err.Error())
	}
	logg.Info("training run %s finished: k=%d, silhouette=%.4f, %d users", run.UUID, model.K, model.Silhouette, model.SampleCount)
	return run, nil
}

// train performs the pipeline fit, k sweep and final clustering, and
// publishes the resulting model.
func (c *Collector) train(ctx context.Context) (*clustering.ClusterModel, []int, []core.UserRecord, error) {
	users, err := c.Store.ListUsers(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(users) < minUsersForTraining {
		return nil, nil, nil, core.InsufficientDataError{What: "users for training", Have: len(users), Need: minUsersForTraining}
	}

	extractor := clustering.FeatureExtractor{TimeNow: c.TimeNow}
	raw := make([]clustering.RawFeatures, len(users))
	for i, user := range users {
		gardens, err := c.Store.ListGardensByOwner(ctx, user.ID)
		if err != nil {
			return nil, nil, nil, err
		}
		raw[i] = extractor.Extract(user, gardens)
	}

	//nolint:gosec // This is not crypto-relevant; a fixed seed keeps runs reproducible.
	rng := rand.New(rand.NewSource(trainingSeed))

	var pipeline clustering.Pipeline
	numeric, categorical, err := pipeline.FitTransform(raw, rng)
	if err != nil {
		return nil, nil, nil, err
	}

	cfg := c.Config.Clustering
	k := clustering.SelectK(numeric, categorical, cfg.MinClusters, cfg.MaxClusters, clustering.KSelectionMethod(cfg.Method), rng)

	kp := clustering.KPrototypes{K: k}
	err = kp.Fit(numeric, categorical, rng)
	if err != nil {
		return nil, nil, nil, err
	}
	silhouette := clustering.Silhouette(numeric, kp.Labels)

	model := clustering.NewClusterModel(cfg.ModelVersion, &pipeline, &kp, silhouette, len(users), c.TimeNow())
	err = c.Models.Publish(model)
	if err != nil {
		return nil, nil, nil, err
	}
	return model, kp.Labels, users, nil
}
