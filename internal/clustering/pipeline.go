// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"encoding/json"
	"math/rand"
	"sort"
	"time"

	"github.com/sapcc/plantgen/internal/core"
)

// NumericFeatureNames is the schema of the numeric feature block, in order.
// The names match the stored garden documents' vocabulary.
var NumericFeatureNames = []string{
	"experience_level",
	"count_orchards",
	"has_tokenFCM",
	"profile_image_present",
	"account_age_days",
	"avg_orchard_area",
	"sum_weekly_water_liters",
	"avg_maintenance_minutes",
	"avg_count_plants",
	"avg_timeOfLife",
	"avg_streak",
	"avg_plant_diversity",
	"pct_vegetable",
	"pct_medicinal",
	"pct_ornamental",
	"pct_aromatic",
}

// CategoricalFeatureNames is the schema of the categorical feature block.
var CategoricalFeatureNames = []string{"objective", "cluster_region"}

// Defaults for missing document values.
const (
	defaultExperienceLevel = 2
	defaultLatitude        = 16.75
	defaultLongitude       = -93.11
)

// RawFeatures is the per-user output of feature extraction, before scaling
// and encoding. Transient; only the fitted pipeline parameters are persisted.
type RawFeatures struct {
	Numeric   []float64
	Objective string
	Latitude  float64
	Longitude float64
}

// FeatureExtractor turns one user document plus their garden documents into
// RawFeatures. Unknown or missing keys resolve to documented defaults.
type FeatureExtractor struct {
	// Usually time.Now, but can be changed inside unit tests.
	TimeNow func() time.Time
}

// Extract computes the mixed feature set for one user.
func (e FeatureExtractor) Extract(user core.UserRecord, gardens []core.GardenRecord) RawFeatures {
	timeNow := e.TimeNow
	if timeNow == nil {
		timeNow = time.Now
	}

	numeric := make([]float64, len(NumericFeatureNames))
	numeric[0] = floatOrDefault(user.Document["experience_level"], defaultExperienceLevel)
	numeric[1] = float64(len(gardens))
	numeric[2] = boolToFloat(stringOf(user.Document["tokenFCM"]) != "")
	numeric[3] = boolToFloat(stringOf(user.Document["profile_image"]) != "")
	numeric[4] = accountAgeDays(user.Document["createdAt"], timeNow())

	objective := string(core.ObjectiveAlimenticio)
	lat, lon := defaultLatitude, defaultLongitude

	if len(gardens) > 0 {
		var areas, water, maintenance, plantCounts, timeOfLife, streaks []float64
		allTypes := make(map[string]struct{})
		categoryPcts := map[string][]float64{
			core.PlantTypeVegetable:  nil,
			core.PlantTypeMedicinal:  nil,
			core.PlantTypeOrnamental: nil,
			core.PlantTypeAromatic:   nil,
		}
		objectiveVotes := make(map[string]int)

		for _, garden := range gardens {
			doc := garden.Document
			layout := mapOf(doc["layout"])

			area := floatOrDefault(mapOf(layout["dimensions"])["totalArea"], 0)
			if area == 0 {
				area = floatOrDefault(doc["width"], 0) * floatOrDefault(doc["height"], 0)
			}
			areas = append(areas, area)

			if estimations := mapOf(doc["estimations"]); estimations != nil {
				water = append(water, floatOrDefault(estimations["weeklyWaterLiters"], 0))
				if m, ok := estimations["maintenanceMinutesPerWeek"]; ok {
					maintenance = append(maintenance, floatOrDefault(m, 0))
				}
			}
			if m, ok := doc["maintenanceMinutes"]; ok {
				maintenance = append(maintenance, floatOrDefault(m, 0))
			}

			plantCounts = append(plantCounts, floatOrDefault(doc["countPlants"], 0))
			timeOfLife = append(timeOfLife, floatOrDefault(doc["timeOfLife"], 0))
			streaks = append(streaks, floatOrDefault(doc["streakOfDays"], 0))

			for _, plant := range sliceOf(layout["plants"]) {
				if s := stringOf(mapOf(plant)["type"]); s != "" {
					allTypes[s] = struct{}{}
				}
			}

			// layout.categoryBreakdown is the canonical location for the
			// category composition; legacy documents without it contribute
			// nothing
			if breakdown := mapOf(layout["categoryBreakdown"]); breakdown != nil {
				for category := range categoryPcts {
					categoryPcts[category] = append(categoryPcts[category], floatOrDefault(breakdown[category], 0))
				}
			}

			if s := stringOf(doc["objective"]); s != "" {
				objectiveVotes[s]++
			} else if s := stringOf(inputParameters(doc)["objective"]); s != "" {
				objectiveVotes[s]++
			}

			if lat == defaultLatitude && lon == defaultLongitude {
				if location := mapOf(inputParameters(doc)["location"]); location != nil {
					latVal, okLat := location["lat"]
					lonVal, okLon := location["lon"]
					if okLat && okLon {
						lat = floatOrDefault(latVal, defaultLatitude)
						lon = floatOrDefault(lonVal, defaultLongitude)
					}
				}
			}
		}

		numeric[5] = mean(areas)
		numeric[6] = sum(water)
		numeric[7] = mean(maintenance)
		numeric[8] = mean(plantCounts)
		numeric[9] = mean(timeOfLife)
		numeric[10] = mean(streaks)
		numeric[11] = float64(len(allTypes))
		numeric[12] = mean(categoryPcts[core.PlantTypeVegetable])
		numeric[13] = mean(categoryPcts[core.PlantTypeMedicinal])
		numeric[14] = mean(categoryPcts[core.PlantTypeOrnamental])
		numeric[15] = mean(categoryPcts[core.PlantTypeAromatic])

		if winner := mostFrequent(objectiveVotes); winner != "" {
			objective = winner
		}
	}

	return RawFeatures{
		Numeric:   numeric,
		Objective: objective,
		Latitude:  lat,
		Longitude: lon,
	}
}

// Pipeline transforms RawFeatures into the scaled numeric block and the
// encoded categorical block that the clusterer consumes. All fit-time
// parameters are persisted as part of the ClusterModel.
type Pipeline struct {
	Scaler StandardScaler `json:"scaler"`
	// Region discretizes (lat, lon) into region IDs. Nil means a single
	// region 0 (too few users at fit time).
	Region *KMeans `json:"region"`
	// ObjectiveCodes encodes the objective strings seen at fit time. Unknown
	// objectives map to -1 at transform time.
	ObjectiveCodes map[string]int `json:"objectiveCodes"`
	Fitted         bool           `json:"-"`
}

// maxRegions caps the geolocation discretizer.
const maxRegions = 10

// minUsersForRegions is the dataset size below which all users share
// region 0.
const minUsersForRegions = 20

// FitTransform learns scaler, region discretizer and categorical encodings,
// then transforms the input.
func (p *Pipeline) FitTransform(raw []RawFeatures, rng *rand.Rand) (numeric [][]float64, categorical [][]int, err error) {
	matrix := numericMatrix(raw)
	err = p.Scaler.Fit(matrix)
	if err != nil {
		return nil, nil, err
	}

	p.Region = nil
	if len(raw) >= minUsersForRegions {
		k := min(maxRegions, len(raw)/10)
		if k >= 2 {
			region := &KMeans{K: k}
			err = region.Fit(locationMatrix(raw), rng)
			if err != nil {
				return nil, nil, err
			}
			p.Region = region
		}
	}

	// assign codes in lexicographic order for deterministic encodings
	objectives := make(map[string]struct{})
	for _, row := range raw {
		objectives[row.Objective] = struct{}{}
	}
	sorted := make([]string, 0, len(objectives))
	for objective := range objectives {
		sorted = append(sorted, objective)
	}
	sort.Strings(sorted)
	p.ObjectiveCodes = make(map[string]int, len(sorted))
	for code, objective := range sorted {
		p.ObjectiveCodes[objective] = code
	}

	p.Fitted = true
	numeric, categorical = p.transform(raw, matrix)
	return numeric, categorical, nil
}

// Transform applies the fitted parameters to new data. Calling Transform on
// the fit input reproduces the FitTransform output.
func (p *Pipeline) Transform(raw []RawFeatures) (numeric [][]float64, categorical [][]int, err error) {
	if !p.Fitted {
		return nil, nil, core.InvalidInputf("pipeline", "not fitted")
	}
	numeric, categorical = p.transform(raw, numericMatrix(raw))
	return numeric, categorical, nil
}

// TransformOne transforms a single user's features.
func (p *Pipeline) TransformOne(raw RawFeatures) (numeric []float64, categorical []int, err error) {
	numericRows, categoricalRows, err := p.Transform([]RawFeatures{raw})
	if err != nil {
		return nil, nil, err
	}
	return numericRows[0], categoricalRows[0], nil
}

func (p *Pipeline) transform(raw []RawFeatures, matrix [][]float64) (numeric [][]float64, categorical [][]int) {
	numeric = p.Scaler.Transform(matrix)
	categorical = make([][]int, len(raw))
	for i, row := range raw {
		region := 0
		if p.Region != nil {
			region = p.Region.Predict([]float64{row.Latitude, row.Longitude})
		}
		code, ok := p.ObjectiveCodes[row.Objective]
		if !ok {
			code = -1
		}
		categorical[i] = []int{code, region}
	}
	return numeric, categorical
}

func numericMatrix(raw []RawFeatures) [][]float64 {
	matrix := make([][]float64, len(raw))
	for i, row := range raw {
		matrix[i] = row.Numeric
	}
	return matrix
}

func locationMatrix(raw []RawFeatures) [][]float64 {
	matrix := make([][]float64, len(raw))
	for i, row := range raw {
		matrix[i] = []float64{row.Latitude, row.Longitude}
	}
	return matrix
}

////////////////////////////////////////////////////////////////////////////////
// helpers for navigating opaque documents

func mapOf(value any) map[string]any {
	m, _ := value.(map[string]any)
	return m
}

func sliceOf(value any) []any {
	s, _ := value.([]any)
	return s
}

func stringOf(value any) string {
	s, _ := value.(string)
	return s
}

func inputParameters(doc map[string]any) map[string]any {
	return mapOf(mapOf(doc["metadata"])["inputParameters"])
}

func floatOrDefault(value any, fallback float64) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return fallback
		}
		return f
	default:
		return fallback
	}
}

func accountAgeDays(value any, now time.Time) float64 {
	var createdAt time.Time
	switch v := value.(type) {
	case time.Time:
		createdAt = v
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return 0
		}
		createdAt = parsed
	default:
		return 0
	}
	age := now.Sub(createdAt).Hours() / 24
	if age < 0 {
		return 0
	}
	return float64(int(age))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func sum(values []float64) float64 {
	var total float64
	for _, value := range values {
		total += value
	}
	return total
}

// mostFrequent returns the most common key; ties break lexicographically for
// determinism. Empty map returns "".
func mostFrequent(votes map[string]int) string {
	best := ""
	bestCount := 0
	for value, count := range votes {
		if count > bestCount || (count == bestCount && best != "" && value < best) {
			best = value
			bestCount = count
		}
	}
	return best
}
