// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package api contains the HTTP API of plantgen-serve.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/plantgen/internal/collector"
	"github.com/sapcc/plantgen/internal/core"
	"github.com/sapcc/plantgen/internal/models"
	"github.com/sapcc/plantgen/internal/recommend"
)

// VersionData is used by version advertisement handlers.
type VersionData struct {
	Status string            `json:"status"`
	ID     string            `json:"id"`
	Links  []VersionLinkData `json:"links"`
}

// VersionLinkData is used by version advertisement handlers, as part of the
// VersionData struct.
type VersionLinkData struct {
	URL      string `json:"href"`
	Relation string `json:"rel"`
	Type     string `json:"type,omitempty"`
}

type v1Provider struct {
	Catalog     *core.Catalog
	Store       core.UserGardenStore
	Models      *models.Manager
	Scorer      *recommend.Scorer
	Collector   *collector.Collector
	VersionData VersionData
	// slots for test doubles
	timeNow func() time.Time
}

// NewV1API creates an httpapi.API that serves the plantgen v1 API.
func NewV1API(catalog *core.Catalog, store core.UserGardenStore, manager *models.Manager, scorer *recommend.Scorer, c *collector.Collector, timeNow func() time.Time) httpapi.API {
	p := &v1Provider{Catalog: catalog, Store: store, Models: manager, Scorer: scorer, Collector: c, timeNow: timeNow}
	p.VersionData = VersionData{
		Status: "CURRENT",
		ID:     "v1",
		Links: []VersionLinkData{
			{
				Relation: "self",
				URL:      "/v1/",
			},
		},
	}
	return p
}

// AddTo implements the httpapi.API interface.
func (p *v1Provider) AddTo(r *mux.Router) {
	r.Methods("HEAD", "GET").Path("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpapi.IdentifyEndpoint(r, "/")
		httpapi.SkipRequestLog(r)
		respondwith.JSON(w, 300, map[string]any{"versions": []VersionData{p.VersionData}})
	})

	r.Methods("GET").Path("/v1/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpapi.IdentifyEndpoint(r, "/v1/")
		httpapi.SkipRequestLog(r)
		respondwith.JSON(w, 200, map[string]any{"version": p.VersionData})
	})

	r.Methods("POST").Path("/v1/gardens/generate").HandlerFunc(p.GenerateGarden)

	r.Methods("POST").Path("/v1/clustering/train").HandlerFunc(p.TriggerTraining)
	r.Methods("GET").Path("/v1/clustering/status").HandlerFunc(p.GetClusteringStatus)
	r.Methods("GET").Path("/v1/clustering/clusters").HandlerFunc(p.ListClusters)
	r.Methods("POST").Path("/v1/clustering/clusters/{cluster_id}/notify").HandlerFunc(p.NotifyCluster)

	r.Methods("GET").Path("/v1/users/{user_id}/recommendations").HandlerFunc(p.GetRecommendations)
}

// RequireJSON will parse the request body into the given data structure, or
// write an error response if that fails.
func RequireJSON(w http.ResponseWriter, r *http.Request, data any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(data)
	if err != nil {
		http.Error(w, "request body is not valid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
