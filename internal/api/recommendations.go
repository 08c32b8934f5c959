// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/plantgen/internal/core"
)

// GetRecommendations handles GET /v1/users/{user_id}/recommendations.
//
// An empty recommendation list is a valid 200 response; a user can be alone
// in their cluster.
func (p *v1Provider) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/users/:id/recommendations")

	userID := mux.Vars(r)["user_id"]
	if userID == "" {
		http.Error(w, "user ID missing", http.StatusBadRequest)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			respondWithError(w, core.InvalidInputf("limit", "must be a positive integer, got %q", limitStr))
			return
		}
		limit = parsed
	}

	set, err := p.Scorer.RecommendationsForUser(r.Context(), userID, limit)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondwith.JSON(w, http.StatusOK, set)
}
