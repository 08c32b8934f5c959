// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package recommend_test

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapcc/plantgen/internal/core"
	"github.com/sapcc/plantgen/internal/test"
)

var objectives = []string{"alimenticio", "medicinal", "ornamental", "sostenible"}

// setupWithTrainedModel fills the store with 12 users plus gardens and runs
// one training pass, so every user has a cluster assignment.
func setupWithTrainedModel(t *testing.T) test.Setup {
	t.Helper()
	s := test.NewSetup(t)
	for i := 1; i <= 12; i++ {
		userID := fmt.Sprintf("user-%02d", i)
		s.Store.AddUser(core.UserRecord{
			ID:       userID,
			Document: test.NewUserDocument(fmt.Sprintf("token-%02d", i), 1+i%4, "1970-01-01T00:00:00Z"),
		})
		s.Store.AddGarden(core.GardenRecord{
			ID:      fmt.Sprintf("garden-%02d", i),
			OwnerID: userID,
			Active:  true,
			Document: test.NewGardenDocument(objectives[i%4], 1+float64(i)*0.3, 20+float64(i)*5,
				30+float64(i)*10, 4+i, map[string]float64{core.PlantTypeVegetable: float64(i%5) * 0.25}),
		})
	}
	_, err := s.Collector.RunTraining(s.Ctx)
	require.NoError(t, err)
	return s
}

// userInLargestCluster returns a user whose cluster has the most members,
// plus the member count.
func userInLargestCluster(t *testing.T, s test.Setup) (core.UserRecord, int) {
	t.Helper()
	users, err := s.Store.ListUsers(s.Ctx)
	require.NoError(t, err)
	members := make(map[int]int)
	for _, user := range users {
		require.NotNil(t, user.ClusterID)
		members[*user.ClusterID]++
	}
	best := users[0]
	for _, user := range users {
		if members[*user.ClusterID] > members[*best.ClusterID] {
			best = user
		}
	}
	return best, members[*best.ClusterID]
}

func TestRecommendationsForUser(t *testing.T) {
	s := setupWithTrainedModel(t)
	user, clusterSize := userInLargestCluster(t, s)
	require.GreaterOrEqual(t, clusterSize, 2)

	set, err := s.Scorer.RecommendationsForUser(s.Ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, user.ID, set.UserID)
	assert.Equal(t, *user.ClusterID, set.ClusterID)
	assert.NotEmpty(t, set.BatchID)
	assert.Equal(t, s.Clock.Now(), set.GeneratedAt)

	// one active garden per peer, capped at the default limit of 10
	assert.Len(t, set.Recommendations, min(clusterSize-1, 10))
	for idx, rec := range set.Recommendations {
		assert.NotEqualf(t, "garden-"+user.ID[len("user-"):], rec.GardenID, "own garden recommended")
		assert.GreaterOrEqual(t, rec.Score, 0.0)
		assert.LessOrEqual(t, rec.Score, 1.0)
		assert.NotEmpty(t, rec.Name)
		if idx > 0 {
			previous := set.Recommendations[idx-1]
			if previous.Score == rec.Score {
				assert.Less(t, previous.GardenID, rec.GardenID)
			} else {
				assert.Greater(t, previous.Score, rec.Score)
			}
		}
	}
}

func TestRecommendationsRespectLimit(t *testing.T) {
	s := setupWithTrainedModel(t)
	user, clusterSize := userInLargestCluster(t, s)
	require.GreaterOrEqual(t, clusterSize, 3)

	set, err := s.Scorer.RecommendationsForUser(s.Ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Len(t, set.Recommendations, 1)
}

func TestRecommendationsExcludeInactiveGardens(t *testing.T) {
	s := setupWithTrainedModel(t)
	user, clusterSize := userInLargestCluster(t, s)
	require.GreaterOrEqual(t, clusterSize, 2)

	before, err := s.Scorer.RecommendationsForUser(s.Ctx, user.ID, 100)
	require.NoError(t, err)
	require.NotEmpty(t, before.Recommendations)

	// archive the top recommendation's garden
	topGardenID := before.Recommendations[0].GardenID
	garden, err := s.Store.ListGardensByOwner(s.Ctx, "user-"+topGardenID[len("garden-"):])
	require.NoError(t, err)
	require.Len(t, garden, 1)
	garden[0].Active = false
	s.Store.AddGarden(garden[0])

	after, err := s.Scorer.RecommendationsForUser(s.Ctx, user.ID, 100)
	require.NoError(t, err)
	assert.Len(t, after.Recommendations, len(before.Recommendations)-1)
	for _, rec := range after.Recommendations {
		assert.NotEqual(t, topGardenID, rec.GardenID)
	}
}

func TestRecommendationsUseEstimationFallbacks(t *testing.T) {
	s := setupWithTrainedModel(t)
	user, clusterSize := userInLargestCluster(t, s)
	require.GreaterOrEqual(t, clusterSize, 2)

	// give a peer a legacy garden document without an estimations block
	users, err := s.Store.ListUsers(s.Ctx)
	require.NoError(t, err)
	var peer core.UserRecord
	for _, candidate := range users {
		if candidate.ID != user.ID && *candidate.ClusterID == *user.ClusterID {
			peer = candidate
			break
		}
	}
	s.Store.AddGarden(core.GardenRecord{
		ID:      "garden-legacy",
		OwnerID: peer.ID,
		Active:  true,
		Document: map[string]any{
			"name":        "Huerto viejo",
			"description": strings.Repeat("ñ", 120),
			"width":       2.0,
			"height":      1.5,
			"countPlants": 6,
		},
	})

	set, err := s.Scorer.RecommendationsForUser(s.Ctx, user.ID, 100)
	require.NoError(t, err)
	for _, rec := range set.Recommendations {
		if rec.GardenID != "garden-legacy" {
			continue
		}
		assert.Equal(t, "Huerto viejo", rec.Name)
		// truncation must not split a multi-byte rune
		assert.Equal(t, strings.Repeat("ñ", 100), rec.ShortDescription)
		assert.True(t, utf8.ValidString(rec.ShortDescription))
		assert.InDelta(t, 2.0*1.5*60, rec.EstimatedWaterUse, 1e-9)
		assert.InDelta(t, 6*15, rec.MaintenanceMinutes, 1e-9)
		assert.InDelta(t, 0.85, rec.Fitness, 1e-9)
		return
	}
	t.Fatal("legacy garden was not recommended")
}

func TestRecommendationsForUnknownUser(t *testing.T) {
	s := setupWithTrainedModel(t)
	_, err := s.Scorer.RecommendationsForUser(s.Ctx, "no-such-user", 0)
	assert.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestRecommendationsWithoutModel(t *testing.T) {
	s := test.NewSetup(t)
	s.Store.AddUser(core.UserRecord{ID: "user-01", Document: map[string]any{}})

	_, err := s.Scorer.RecommendationsForUser(s.Ctx, "user-01", 0)
	var ide core.InsufficientDataError
	assert.ErrorAs(t, err, &ide)
}

func TestRecommendationsWithoutPeers(t *testing.T) {
	s := setupWithTrainedModel(t)

	// a user in a cluster of their own gets an empty, non-nil list
	lonelyCluster := 99
	s.Store.AddUser(core.UserRecord{ID: "loner", Document: map[string]any{}, ClusterID: &lonelyCluster})

	set, err := s.Scorer.RecommendationsForUser(s.Ctx, "loner", 0)
	require.NoError(t, err)
	assert.Equal(t, lonelyCluster, set.ClusterID)
	assert.NotNil(t, set.Recommendations)
	assert.Empty(t, set.Recommendations)
}
