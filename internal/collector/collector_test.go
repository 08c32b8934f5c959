// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package collector_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapcc/plantgen/internal/collector"
	"github.com/sapcc/plantgen/internal/core"
	"github.com/sapcc/plantgen/internal/test"
)

var objectives = []string{"alimenticio", "medicinal", "ornamental", "sostenible"}

// addTrainingDataset fills the store with 12 users and one garden each.
// Every fourth user has no device token.
func addTrainingDataset(s test.Setup) {
	for i := 1; i <= 12; i++ {
		userID := fmt.Sprintf("user-%02d", i)
		token := fmt.Sprintf("token-%02d", i)
		if i%4 == 0 {
			token = ""
		}
		s.Store.AddUser(core.UserRecord{
			ID:       userID,
			Document: test.NewUserDocument(token, 1+i%4, "1970-01-01T00:00:00Z"),
		})
		s.Store.AddGarden(core.GardenRecord{
			ID:      fmt.Sprintf("garden-%02d", i),
			OwnerID: userID,
			Active:  true,
			Document: test.NewGardenDocument(objectives[i%4], 1+float64(i)*0.3, 20+float64(i)*5,
				30+float64(i)*10, 4+i, map[string]float64{core.PlantTypeVegetable: float64(i%5) * 0.25}),
		})
	}
}

func TestRunTrainingSuccess(t *testing.T) {
	s := test.NewSetup(t)
	addTrainingDataset(s)

	run, err := s.Collector.RunTraining(s.Ctx)
	require.NoError(t, err)
	assert.True(t, run.Success)
	assert.NotEmpty(t, run.UUID)
	assert.Equal(t, 12, run.SampleCount)
	assert.Equal(t, "v1", run.ModelVersion)
	assert.Empty(t, run.ErrorMessage)

	model := s.Models.Current()
	require.NotNil(t, model)
	assert.Equal(t, run.ClusterCount, model.K)
	assert.Equal(t, run.ClusterSizes, model.ClusterSizes)

	// every user got a cluster assignment within range
	users, err := s.Store.ListUsers(s.Ctx)
	require.NoError(t, err)
	for _, user := range users {
		require.NotNilf(t, user.ClusterID, "user %s has no cluster", user.ID)
		assert.GreaterOrEqual(t, *user.ClusterID, 0)
		assert.Less(t, *user.ClusterID, model.K)
	}

	latest, ok, err := s.Store.LatestTrainingRun(s.Ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, run.UUID, latest.UUID)
}

func TestRunTrainingIsReproducible(t *testing.T) {
	s := test.NewSetup(t)
	addTrainingDataset(s)

	first, err := s.Collector.RunTraining(s.Ctx)
	require.NoError(t, err)
	firstModel := s.Models.Current()

	second, err := s.Collector.RunTraining(s.Ctx)
	require.NoError(t, err)
	secondModel := s.Models.Current()

	// same dataset, same fixed seed, same result
	assert.Equal(t, first.ClusterCount, second.ClusterCount)
	assert.Equal(t, first.ClusterSizes, second.ClusterSizes)
	assert.Equal(t, firstModel.Centroids, secondModel.Centroids)
	assert.Equal(t, firstModel.Modes, secondModel.Modes)
}

func TestRunTrainingWithTooFewUsers(t *testing.T) {
	s := test.NewSetup(t)
	for i := 1; i <= 3; i++ {
		s.Store.AddUser(core.UserRecord{
			ID:       fmt.Sprintf("user-%02d", i),
			Document: test.NewUserDocument("token", 2, "1970-01-01T00:00:00Z"),
		})
	}

	run, err := s.Collector.RunTraining(s.Ctx)
	var ide core.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 3, ide.Have)

	// the failure is recorded and no model is published
	assert.False(t, run.Success)
	assert.NotEmpty(t, run.ErrorMessage)
	assert.Equal(t, 1, s.Store.TrainingRunCount())
	assert.Nil(t, s.Models.Current())
}

func TestRunTrainingRejectsOverlap(t *testing.T) {
	s := test.NewSetup(t)
	addTrainingDataset(s)

	require.True(t, s.Models.BeginTraining())
	defer s.Models.EndTraining()

	_, err := s.Collector.RunTraining(s.Ctx)
	assert.ErrorIs(t, err, collector.ErrTrainingOverlap)
	assert.Equal(t, 0, s.Store.TrainingRunCount())
}

func TestTrainingJobFollowsMonthlySchedule(t *testing.T) {
	s := test.NewSetup(t)
	addTrainingDataset(s)
	job := s.Collector.TrainingJob(prometheus.NewPedanticRegistry())

	// the clock starts at 1970-01-01T00:00:00Z, so the most recent slot
	// (1st of the month, 03:00) lies in December 1969 and is uncovered
	require.NoError(t, job.ProcessOne(s.Ctx))
	assert.Equal(t, 1, s.Store.TrainingRunCount())

	// polling again within the same slot does nothing
	require.NoError(t, job.ProcessOne(s.Ctx))
	assert.Equal(t, 1, s.Store.TrainingRunCount())

	// stepping past 03:00 reaches the January slot
	s.Clock.StepBy(4 * time.Hour)
	require.NoError(t, job.ProcessOne(s.Ctx))
	assert.Equal(t, 2, s.Store.TrainingRunCount())
}

func TestBroadcastJobFollowsWeeklySchedule(t *testing.T) {
	s := test.NewSetup(t)
	addTrainingDataset(s)
	_, err := s.Collector.RunTraining(s.Ctx)
	require.NoError(t, err)
	job := s.Collector.BroadcastJob(prometheus.NewPedanticRegistry())

	// the first poll only arms the gate
	require.NoError(t, job.ProcessOne(s.Ctx))
	assert.Empty(t, s.Pusher.Sent())

	// a week later the Monday 09:00 slot has passed
	s.Clock.StepBy(7 * 24 * time.Hour)
	require.NoError(t, job.ProcessOne(s.Ctx))
	sent := s.Pusher.Sent()
	assert.Len(t, sent, 9) // 12 users, 3 without token
	for _, notification := range sent {
		assert.Equal(t, "weekly_recommendations", notification.Data["type"])
	}

	// the slot is covered now
	require.NoError(t, job.ProcessOne(s.Ctx))
	assert.Len(t, s.Pusher.Sent(), 9)
}

func TestBroadcastRetriesAfterStoreFailure(t *testing.T) {
	s := test.NewSetup(t)
	addTrainingDataset(s)
	_, err := s.Collector.RunTraining(s.Ctx)
	require.NoError(t, err)
	job := s.Collector.BroadcastJob(prometheus.NewPedanticRegistry())

	require.NoError(t, job.ProcessOne(s.Ctx))
	s.Clock.StepBy(7 * 24 * time.Hour)

	// a transient store failure must not consume the slot
	s.Store.NextListUsersError = errors.New("connection reset")
	require.Error(t, job.ProcessOne(s.Ctx))
	assert.Empty(t, s.Pusher.Sent())

	// the next poll retries and delivers
	s.Clock.StepBy(15 * time.Minute)
	require.NoError(t, job.ProcessOne(s.Ctx))
	assert.Len(t, s.Pusher.Sent(), 9)
}

func TestRunBroadcastWithoutModel(t *testing.T) {
	s := test.NewSetup(t)
	addTrainingDataset(s)

	require.NoError(t, s.Collector.RunBroadcast(s.Ctx))
	assert.Empty(t, s.Pusher.Sent())
}

func TestRunBroadcastCountsFailures(t *testing.T) {
	s := test.NewSetup(t)
	addTrainingDataset(s)
	_, err := s.Collector.RunTraining(s.Ctx)
	require.NoError(t, err)

	s.Pusher.FailingTokens = map[string]error{"token-01": errors.New("unregistered device")}
	var loggedErrors []string
	s.Collector.LogError = func(msg string, args ...any) {
		loggedErrors = append(loggedErrors, fmt.Sprintf(msg, args...))
	}

	require.NoError(t, s.Collector.RunBroadcast(s.Ctx))
	assert.Len(t, s.Pusher.Sent(), 8)
	require.Len(t, loggedErrors, 1)
	assert.Contains(t, loggedErrors[0], "user-01")
}

func TestNotifyCluster(t *testing.T) {
	s := test.NewSetup(t)
	addTrainingDataset(s)
	_, err := s.Collector.RunTraining(s.Ctx)
	require.NoError(t, err)

	users, err := s.Store.ListUsers(s.Ctx)
	require.NoError(t, err)
	targetCluster := *users[0].ClusterID
	expected := 0
	for _, user := range users {
		if *user.ClusterID == targetCluster && user.PushToken() != "" {
			expected++
		}
	}

	notified, failed, err := s.Collector.NotifyCluster(s.Ctx, targetCluster, "Hola", "Nuevos huertos en tu zona")
	require.NoError(t, err)
	assert.Equal(t, expected, notified)
	assert.Equal(t, 0, failed)
	for _, notification := range s.Pusher.Sent() {
		assert.Equal(t, "Hola", notification.Title)
		assert.Equal(t, "cluster_notification", notification.Data["type"])
		assert.Equal(t, fmt.Sprint(targetCluster), notification.Data["clusterId"])
	}
}
