// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/plantgen/internal/core"
	"github.com/sapcc/plantgen/internal/optimizer"
)

// Request defaults and bounds for POST /v1/gardens/generate.
const (
	defaultArea        = 2.0
	defaultMaxWater    = 150.0
	defaultBudget      = 400.0
	defaultMaintenance = 90
	minPopulationSize  = 10
	maxPopulationSize  = 100
	minMaxGenerations  = 50
	maxMaxGenerations  = 500
)

type generateGardenRequest struct {
	Objective       string   `json:"objective"`
	Area            *float64 `json:"area"`
	MaxWater        *float64 `json:"maxWater"`
	Budget          *float64 `json:"budget"`
	MaintenanceTime *int     `json:"maintenanceTime"`
	PopulationSize  *int     `json:"populationSize"`
	MaxGenerations  *int     `json:"maxGenerations"`
	// Seed fixes the PRNG; identical requests with the same seed return
	// identical layouts. Defaults to the current time.
	Seed *int64 `json:"seed"`
}

type layoutDimensions struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	TotalArea float64 `json:"totalArea"`
	Rows      int     `json:"rows"`
	Cols      int     `json:"cols"`
}

type layoutMetrics struct {
	Fitness float64 `json:"fitness"`
	CEE     float64 `json:"cee"`
	PSNTPA  float64 `json:"psntpa"`
	WCE     float64 `json:"wce"`
	UE      float64 `json:"ue"`
}

type layoutPlant struct {
	ID                int     `json:"id"`
	Species           string  `json:"species"`
	Type              string  `json:"type,omitempty"`
	Count             int     `json:"count"`
	ProductionPerUnit float64 `json:"productionPerUnitKg"`
}

type layoutEstimations struct {
	WeeklyWaterLiters         float64 `json:"weeklyWaterLiters"`
	MaintenanceMinutesPerWeek float64 `json:"maintenanceMinutesPerWeek"`
	TotalCost                 float64 `json:"totalCost"`
	UsedArea                  float64 `json:"usedArea"`
	ProductionPerCycleKg      float64 `json:"productionPerCycleKg"`
	MonthlyProductionKg       float64 `json:"monthlyProductionKg"`
	Fitness                   float64 `json:"fitness"`
}

type calendarEntry struct {
	Species      string `json:"species"`
	PlantingWeek int    `json:"plantingWeek"`
	HarvestWeek  int    `json:"harvestWeek"`
}

type layoutData struct {
	Dimensions        layoutDimensions   `json:"dimensions"`
	Grid              [][]int            `json:"grid"`
	Metrics           layoutMetrics      `json:"metrics"`
	CountPlants       int                `json:"countPlants"`
	Plants            []layoutPlant      `json:"plants"`
	CategoryBreakdown map[string]float64 `json:"categoryBreakdown"`
	Estimations       layoutEstimations  `json:"estimations"`
	PlantingCalendar  []calendarEntry    `json:"plantingCalendar"`
}

type generateGardenResponse struct {
	Layouts              []layoutData                `json:"layouts"`
	Stats                []optimizer.GenerationStats `json:"stats"`
	GenerationsExecuted  int                         `json:"generationsExecuted"`
	ConvergenceReason    string                      `json:"convergenceReason"`
	ExecutionTimeSeconds float64                     `json:"executionTimeSeconds"`
	Parameters           generateGardenRequest       `json:"parameters"`
}

// GenerateGarden handles POST /v1/gardens/generate.
func (p *v1Provider) GenerateGarden(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/gardens/generate")

	var req generateGardenRequest
	if !RequireJSON(w, r, &req) {
		return
	}
	applyRequestDefaults(&req, p.timeNow().UnixNano())

	objective := core.ObjectiveType(req.Objective)
	if !objective.IsValid() {
		respondWithError(w, core.InvalidInputf("objective", "unknown value %q", req.Objective))
		return
	}
	if err := validateSearchParams(req); err != nil {
		respondWithError(w, err)
		return
	}
	constraints, err := core.NewConstraints(*req.Area, *req.MaxWater, *req.Budget, *req.MaintenanceTime)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if have := len(p.Catalog.Plants); have < core.MinPlantsForOptimization {
		respondWithError(w, core.InsufficientDataError{What: "plants in catalog", Have: have, Need: core.MinPlantsForOptimization})
		return
	}

	params := optimizer.DefaultParams()
	params.PopulationSize = *req.PopulationSize
	params.MaxGenerations = *req.MaxGenerations

	start := p.timeNow()
	search := optimizer.NewSearch(p.Catalog, objective, constraints, params, *req.Seed)
	result := search.Run(r.Context())

	resp := generateGardenResponse{
		Layouts:              make([]layoutData, 0, len(result.Layouts)),
		Stats:                result.Stats,
		GenerationsExecuted:  result.GenerationsExecuted,
		ConvergenceReason:    result.ConvergenceReason,
		ExecutionTimeSeconds: p.timeNow().Sub(start).Seconds(),
		Parameters:           req,
	}
	for _, layout := range result.Layouts {
		resp.Layouts = append(resp.Layouts, buildLayoutData(layout, search.Evaluator(), p.Catalog))
	}
	respondwith.JSON(w, http.StatusOK, resp)
}

func applyRequestDefaults(req *generateGardenRequest, fallbackSeed int64) {
	if req.Objective == "" {
		req.Objective = string(core.ObjectiveAlimenticio)
	}
	if req.Area == nil {
		req.Area = pointerTo(defaultArea)
	}
	if req.MaxWater == nil {
		req.MaxWater = pointerTo(defaultMaxWater)
	}
	if req.Budget == nil {
		req.Budget = pointerTo(defaultBudget)
	}
	if req.MaintenanceTime == nil {
		req.MaintenanceTime = pointerTo(defaultMaintenance)
	}
	if req.PopulationSize == nil {
		req.PopulationSize = pointerTo(optimizer.DefaultParams().PopulationSize)
	}
	if req.MaxGenerations == nil {
		req.MaxGenerations = pointerTo(optimizer.DefaultParams().MaxGenerations)
	}
	if req.Seed == nil {
		req.Seed = pointerTo(fallbackSeed)
	}
}

func validateSearchParams(req generateGardenRequest) error {
	if n := *req.PopulationSize; n < minPopulationSize || n > maxPopulationSize {
		return core.InvalidInputf("populationSize", "must be between %d and %d, got %d", minPopulationSize, maxPopulationSize, n)
	}
	if n := *req.MaxGenerations; n < minMaxGenerations || n > maxMaxGenerations {
		return core.InvalidInputf("maxGenerations", "must be between %d and %d, got %d", minMaxGenerations, maxMaxGenerations, n)
	}
	return nil
}

func buildLayoutData(layout *optimizer.Layout, eval *optimizer.Evaluator, catalog *core.Catalog) layoutData {
	counts := layout.PlantCounts()
	totalPlants := layout.TotalPlants()

	plants := make([]layoutPlant, 0, len(counts))
	calendar := make([]calendarEntry, 0, len(counts))
	breakdown := map[string]float64{
		core.PlantTypeVegetable:  0,
		core.PlantTypeMedicinal:  0,
		core.PlantTypeAromatic:   0,
		core.PlantTypeOrnamental: 0,
	}
	for _, id := range layout.DistinctIDs() {
		plant, ok := catalog.PlantByID(id)
		if !ok {
			continue
		}
		entry := layoutPlant{
			ID:                plant.ID,
			Species:           plant.Species,
			Count:             counts[id],
			ProductionPerUnit: plant.ProductionPerCycle(),
		}
		if len(plant.Types) > 0 {
			entry.Type = plant.Types[0]
		}
		plants = append(plants, entry)
		calendar = append(calendar, calendarEntry{
			Species:      plant.Species,
			PlantingWeek: 0,
			HarvestWeek:  plant.HarvestDays / 7,
		})
		if totalPlants > 0 {
			for _, plantType := range plant.Types {
				breakdown[plantType] += float64(counts[id]) / float64(totalPlants)
			}
		}
	}

	production := eval.TotalProductionPerCycle(layout)
	return layoutData{
		Dimensions: layoutDimensions{
			Width:     layout.Width,
			Height:    layout.Height,
			TotalArea: layout.Area(),
			Rows:      layout.Rows(),
			Cols:      layout.Cols(),
		},
		Grid: layout.Grid,
		Metrics: layoutMetrics{
			Fitness: layout.Fitness,
			CEE:     layout.CEE,
			PSNTPA:  layout.PSNTPA,
			WCE:     layout.WCE,
			UE:      layout.UE,
		},
		CountPlants:       totalPlants,
		Plants:            plants,
		CategoryBreakdown: breakdown,
		Estimations: layoutEstimations{
			WeeklyWaterLiters:         eval.WeeklyWaterUse(layout),
			MaintenanceMinutesPerWeek: float64(totalPlants * optimizer.MaintenanceMinutesPerPlant),
			TotalCost:                 eval.TotalCost(layout),
			UsedArea:                  eval.UsedArea(layout),
			ProductionPerCycleKg:      production,
			MonthlyProductionKg:       production / 4,
			Fitness:                   layout.Fitness,
		},
		PlantingCalendar: calendar,
	}
}

func pointerTo[T any](value T) *T {
	return &value
}
