// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package recommend turns cluster assignments into per-user garden
// recommendations: gardens of similar users in the same cluster, ranked by
// profile similarity.
package recommend

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/sapcc/plantgen/internal/clustering"
	"github.com/sapcc/plantgen/internal/core"
	"github.com/sapcc/plantgen/internal/models"
)

// DefaultLimit is used when the caller does not constrain the result size.
const DefaultLimit = 10

// shortDescriptionLimit truncates garden descriptions in recommendation
// payloads. The limit is counted in runes, not bytes.
const shortDescriptionLimit = 100

// Fallback estimations for gardens whose documents predate the estimation
// fields.
const (
	fallbackWaterPerSquareMeter = 60
	fallbackMaintenancePerPlant = 15
	fallbackFitness             = 0.85
	fallbackScore               = 0.5
)

// Recommendation is one ranked garden suggestion.
type Recommendation struct {
	GardenID           string  `json:"gardenId"`
	Name               string  `json:"name"`
	ShortDescription   string  `json:"shortDescription"`
	EstimatedWaterUse  float64 `json:"estimatedWeeklyWaterLiters"`
	MaintenanceMinutes float64 `json:"maintenanceMinutesPerWeek"`
	Fitness            float64 `json:"fitness"`
	Score              float64 `json:"score"`
}

// RecommendationSet is the full response for one user.
type RecommendationSet struct {
	UserID          string           `json:"userId"`
	ClusterID       int              `json:"clusterId"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	BatchID         string           `json:"batchId"`
}

// Scorer computes recommendation sets from the active cluster model.
type Scorer struct {
	Store     core.UserGardenStore
	Models    *models.Manager
	Extractor clustering.FeatureExtractor

	// Usually time.Now, but can be changed inside unit tests.
	TimeNow func() time.Time
}

// RecommendationsForUser assembles the ranked garden list for one user. The
// user's cluster comes from the stored assignment when present, otherwise
// from a fresh prediction against the active model.
func (s *Scorer) RecommendationsForUser(ctx context.Context, userID string, limit int) (RecommendationSet, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	timeNow := s.TimeNow
	if timeNow == nil {
		timeNow = time.Now
	}

	model, err := s.Models.CurrentOrError()
	if err != nil {
		return RecommendationSet{}, err
	}

	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return RecommendationSet{}, err
	}
	userGardens, err := s.Store.ListGardensByOwner(ctx, userID)
	if err != nil {
		return RecommendationSet{}, err
	}

	userRaw := s.Extractor.Extract(user, userGardens)
	clusterID, err := s.resolveCluster(user, userRaw, model)
	if err != nil {
		return RecommendationSet{}, err
	}

	peers, err := s.clusterPeers(ctx, userID, clusterID)
	if err != nil {
		return RecommendationSet{}, err
	}

	userVector, _, err := model.Pipeline().TransformOne(userRaw)
	if err != nil {
		return RecommendationSet{}, err
	}

	peerIDs := make([]string, len(peers))
	for i, peer := range peers {
		peerIDs[i] = peer.ID
	}
	peerGardens, err := s.Store.ListActiveGardensByOwners(ctx, peerIDs)
	if err != nil {
		return RecommendationSet{}, err
	}
	gardensByOwner := make(map[string][]core.GardenRecord, len(peers))
	for _, garden := range peerGardens {
		gardensByOwner[garden.OwnerID] = append(gardensByOwner[garden.OwnerID], garden)
	}

	var recommendations []Recommendation
	for _, peer := range peers {
		gardens := gardensByOwner[peer.ID]
		if len(gardens) == 0 {
			continue
		}
		score := s.similarityScore(userVector, peer, gardens, model)
		for _, garden := range gardens {
			recommendations = append(recommendations, buildRecommendation(garden, score))
		}
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		return recommendations[i].GardenID < recommendations[j].GardenID
	})
	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}
	if recommendations == nil {
		recommendations = []Recommendation{}
	}

	batchID := uuid.Must(uuid.NewV4())
	return RecommendationSet{
		UserID:          userID,
		ClusterID:       clusterID,
		Recommendations: recommendations,
		GeneratedAt:     timeNow(),
		BatchID:         batchID.String(),
	}, nil
}

func (s *Scorer) resolveCluster(user core.UserRecord, raw clustering.RawFeatures, model *clustering.ClusterModel) (int, error) {
	if user.ClusterID != nil {
		return *user.ClusterID, nil
	}
	return model.Predict(raw)
}

// clusterPeers lists the other users assigned to the same cluster.
func (s *Scorer) clusterPeers(ctx context.Context, userID string, clusterID int) ([]core.UserRecord, error) {
	users, err := s.Store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	var peers []core.UserRecord
	for _, candidate := range users {
		if candidate.ID == userID {
			continue
		}
		if candidate.ClusterID != nil && *candidate.ClusterID == clusterID {
			peers = append(peers, candidate)
		}
	}
	return peers, nil
}

// similarityScore rates a peer by cosine similarity of the two users' scaled
// numeric profiles, rescaled from [-1,1] to [0,1]. Degenerate vectors fall
// back to a neutral score.
func (s *Scorer) similarityScore(userVector []float64, peer core.UserRecord, peerGardens []core.GardenRecord, model *clustering.ClusterModel) float64 {
	peerRaw := s.Extractor.Extract(peer, peerGardens)
	peerVector, _, err := model.Pipeline().TransformOne(peerRaw)
	if err != nil {
		return fallbackScore
	}
	similarity, ok := cosineSimilarity(userVector, peerVector)
	if !ok {
		return fallbackScore
	}
	return (similarity + 1) / 2
}

func buildRecommendation(garden core.GardenRecord, score float64) Recommendation {
	doc := garden.Document

	name := stringField(doc, "name")
	if name == "" {
		name = "Garden " + garden.ID
	}
	description := stringField(doc, "description")
	if runes := []rune(description); len(runes) > shortDescriptionLimit {
		description = string(runes[:shortDescriptionLimit])
	}

	water, maintenance, fitness := gardenEstimations(doc)
	return Recommendation{
		GardenID:           garden.ID,
		Name:               name,
		ShortDescription:   description,
		EstimatedWaterUse:  water,
		MaintenanceMinutes: maintenance,
		Fitness:            fitness,
		Score:              score,
	}
}

// gardenEstimations reads the stored estimation block, deriving each missing
// value from the garden's dimensions or plant count.
func gardenEstimations(doc map[string]any) (water, maintenance, fitness float64) {
	estimations, _ := doc["estimations"].(map[string]any)

	water, ok := floatField(estimations, "weeklyWaterLiters")
	if !ok {
		width, _ := floatField(doc, "width")
		height, _ := floatField(doc, "height")
		water = width * height * fallbackWaterPerSquareMeter
	}
	maintenance, ok = floatField(estimations, "maintenanceMinutesPerWeek")
	if !ok {
		countPlants, _ := floatField(doc, "countPlants")
		maintenance = countPlants * fallbackMaintenancePerPlant
	}
	fitness, ok = floatField(estimations, "fitness")
	if !ok {
		fitness = fallbackFitness
	}
	return water, maintenance, fitness
}

func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

func floatField(doc map[string]any, key string) (float64, bool) {
	switch v := doc[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// cosineSimilarity reports false when either vector has zero norm.
func cosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
