// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/plantgen/internal/core"
)

type trainingRunData struct {
	UUID         string    `json:"uuid"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	ClusterCount int       `json:"clusterCount"`
	SampleCount  int       `json:"sampleCount"`
	Silhouette   float64   `json:"silhouette"`
	Cost         float64   `json:"cost"`
	ClusterSizes []int     `json:"clusterSizes"`
	ModelVersion string    `json:"modelVersion"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

func packTrainingRun(run core.TrainingRun) trainingRunData {
	return trainingRunData{
		UUID:         run.UUID,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		ClusterCount: run.ClusterCount,
		SampleCount:  run.SampleCount,
		Silhouette:   run.Silhouette,
		Cost:         run.Cost,
		ClusterSizes: run.ClusterSizes,
		ModelVersion: run.ModelVersion,
		Success:      run.Success,
		ErrorMessage: run.ErrorMessage,
	}
}

// TriggerTraining handles POST /v1/clustering/train.
//
// The training runs synchronously; with a few thousand users it completes
// within seconds. A second trigger while one is in flight reports 409.
func (p *v1Provider) TriggerTraining(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/clustering/train")

	run, err := p.Collector.RunTraining(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{"training": packTrainingRun(run)})
}

// GetClusteringStatus handles GET /v1/clustering/status.
func (p *v1Provider) GetClusteringStatus(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/clustering/status")

	status := map[string]any{
		"modelLoaded": false,
	}
	if model := p.Models.Current(); model != nil {
		status["modelLoaded"] = true
		status["modelVersion"] = model.ModelVersion
		status["trainedAt"] = model.TrainedAt
	}
	run, ok, err := p.Store.LatestTrainingRun(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	if ok {
		status["lastTraining"] = packTrainingRun(run)
	}
	respondwith.JSON(w, http.StatusOK, status)
}

// ListClusters handles GET /v1/clustering/clusters.
func (p *v1Provider) ListClusters(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/clustering/clusters")

	model := p.Models.MetadataSnapshot()
	if model == nil {
		respondWithError(w, core.InsufficientDataError{What: "trained cluster model", Have: 0, Need: 1})
		return
	}

	clusters := make([]map[string]any, model.K)
	for i := range model.K {
		clusters[i] = map[string]any{
			"id":       i,
			"size":     model.ClusterSizes[i],
			"centroid": model.Centroids[i],
			"modes":    model.Modes[i],
		}
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{
		"modelVersion": model.ModelVersion,
		"k":            model.K,
		"silhouette":   model.Silhouette,
		"sampleCount":  model.SampleCount,
		"trainedAt":    model.TrainedAt,
		"clusters":     clusters,
	})
}

type notifyClusterRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NotifyCluster handles POST /v1/clustering/clusters/{cluster_id}/notify.
func (p *v1Provider) NotifyCluster(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/clustering/clusters/:id/notify")

	clusterID, err := strconv.Atoi(mux.Vars(r)["cluster_id"])
	if err != nil {
		http.Error(w, "cluster ID must be numeric", http.StatusBadRequest)
		return
	}
	model := p.Models.Current()
	if model == nil {
		respondWithError(w, core.InsufficientDataError{What: "trained cluster model", Have: 0, Need: 1})
		return
	}
	if clusterID < 0 || clusterID >= model.K {
		http.Error(w, "no such cluster", http.StatusNotFound)
		return
	}

	var req notifyClusterRequest
	if !RequireJSON(w, r, &req) {
		return
	}
	if req.Title == "" {
		req.Title = "Recomendaciones de tu comunidad"
	}
	if req.Body == "" {
		req.Body = "Hay nuevos huertos recomendados para ti."
	}

	notified, failed, err := p.Collector.NotifyCluster(r.Context(), clusterID, req.Title, req.Body)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{
		"clusterId": clusterID,
		"notified":  notified,
		"failed":    failed,
	})
}
