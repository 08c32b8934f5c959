// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sapcc/go-bits/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapcc/plantgen/internal/test"
)

func TestGenerateGardenWithDefaults(t *testing.T) {
	s := test.NewSetup(t, test.WithAPIHandler(NewV1API))

	var resp generateGardenResponse
	status := sendJSON(t, s.Handler, http.MethodPost, "/v1/gardens/generate",
		assert.JSONObject{"maxGenerations": 50}, &resp)
	require.Equal(t, http.StatusOK, status)

	// defaults are echoed back
	require.Equal(t, "alimenticio", resp.Parameters.Objective)
	require.NotNil(t, resp.Parameters.Area)
	require.Equal(t, 2.0, *resp.Parameters.Area)
	require.NotNil(t, resp.Parameters.PopulationSize)
	require.Equal(t, 40, *resp.Parameters.PopulationSize)
	require.NotNil(t, resp.Parameters.Seed)

	require.NotEmpty(t, resp.Layouts)
	require.LessOrEqual(t, len(resp.Layouts), 3)
	require.Equal(t, len(resp.Stats), resp.GenerationsExecuted)
	require.NotEmpty(t, resp.ConvergenceReason)
	for _, layout := range resp.Layouts {
		require.GreaterOrEqual(t, layout.Dimensions.TotalArea, 1.0)
		require.LessOrEqual(t, layout.Dimensions.TotalArea, 5.0)
		require.Equal(t, layout.Dimensions.Rows, len(layout.Grid))
		for _, metric := range []float64{layout.Metrics.Fitness, layout.Metrics.CEE, layout.Metrics.PSNTPA, layout.Metrics.WCE, layout.Metrics.UE} {
			require.GreaterOrEqual(t, metric, 0.0)
			require.LessOrEqual(t, metric, 1.0)
		}
		countFromPlants := 0
		for _, plant := range layout.Plants {
			countFromPlants += plant.Count
		}
		require.Equal(t, layout.CountPlants, countFromPlants)
		require.Equal(t, layout.Estimations.Fitness, layout.Metrics.Fitness)
		require.InDelta(t, layout.Estimations.ProductionPerCycleKg/4, layout.Estimations.MonthlyProductionKg, 1e-9)
	}
}

func TestGenerateGardenIsDeterministicUnderSeed(t *testing.T) {
	s := test.NewSetup(t, test.WithAPIHandler(NewV1API))
	body := `{"objective": "medicinal", "seed": 42, "populationSize": 20, "maxGenerations": 50}`

	run := func() string {
		request := httptest.NewRequest(http.MethodPost, "/v1/gardens/generate", strings.NewReader(body))
		recorder := httptest.NewRecorder()
		s.Handler.ServeHTTP(recorder, request)
		require.Equal(t, http.StatusOK, recorder.Code)
		return recorder.Body.String()
	}
	require.Equal(t, run(), run())
}

func TestGenerateGardenInputValidation(t *testing.T) {
	s := test.NewSetup(t, test.WithAPIHandler(NewV1API))

	assert.HTTPRequest{
		Method:       http.MethodPost,
		Path:         "/v1/gardens/generate",
		Body:         assert.JSONObject{"objective": "cosmico"},
		ExpectStatus: http.StatusUnprocessableEntity,
		ExpectBody:   assert.StringData("invalid value for objective: unknown value \"cosmico\"\n"),
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       http.MethodPost,
		Path:         "/v1/gardens/generate",
		Body:         assert.JSONObject{"populationSize": 5},
		ExpectStatus: http.StatusUnprocessableEntity,
		ExpectBody:   assert.StringData("invalid value for populationSize: must be between 10 and 100, got 5\n"),
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       http.MethodPost,
		Path:         "/v1/gardens/generate",
		Body:         assert.JSONObject{"maxGenerations": 1000},
		ExpectStatus: http.StatusUnprocessableEntity,
		ExpectBody:   assert.StringData("invalid value for maxGenerations: must be between 50 and 500, got 1000\n"),
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       http.MethodPost,
		Path:         "/v1/gardens/generate",
		Body:         assert.JSONObject{"area": 10},
		ExpectStatus: http.StatusUnprocessableEntity,
		ExpectBody:   assert.StringData("invalid value for area: must be between 1 and 5 m², got 10\n"),
	}.Check(t, s.Handler)
}

func TestGenerateGardenRejectsMalformedBodies(t *testing.T) {
	s := test.NewSetup(t, test.WithAPIHandler(NewV1API))

	// not JSON at all
	request := httptest.NewRequest(http.MethodPost, "/v1/gardens/generate", strings.NewReader("{invalid"))
	recorder := httptest.NewRecorder()
	s.Handler.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	// unknown fields are rejected, not silently dropped
	request = httptest.NewRequest(http.MethodPost, "/v1/gardens/generate", strings.NewReader(`{"bogus": true}`))
	recorder = httptest.NewRecorder()
	s.Handler.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}
