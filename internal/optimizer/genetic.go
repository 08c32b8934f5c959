// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package optimizer

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/sapcc/plantgen/internal/core"
)

// Params are the tunables of the genetic search. The zero value is not
// usable; start from DefaultParams().
type Params struct {
	PopulationSize int
	MaxGenerations int
	CrossoverRate  float64
	MutationRate   float64
	TournamentSize int
	EliteCount     int
	Patience       int
}

// DefaultParams returns the standard parameter set.
func DefaultParams() Params {
	return Params{
		PopulationSize: 40,
		MaxGenerations: 150,
		CrossoverRate:  0.85,
		MutationRate:   0.08,
		TournamentSize: 3,
		EliteCount:     3,
		Patience:       20,
	}
}

// GenerationStats records convergence data for one generation.
type GenerationStats struct {
	Generation      int     `json:"generation"`
	BestFitness     float64 `json:"bestFitness"`
	AvgFitness      float64 `json:"avgFitness"`
	FitnessVariance float64 `json:"fitnessVariance"`
}

// Convergence reasons reported in Result.ConvergenceReason.
const (
	ReasonMaxGenerations  = "max generations reached"
	ReasonNoImprovement   = "converged: no improvement within patience window"
	ReasonLowVariance     = "converged: fitness variance below threshold"
	ReasonEmptyPopulation = "empty population: constraints too strict for any placement"
	ReasonCancelled       = "cancelled: returning best snapshot"
)

// varianceThreshold is the population fitness variance below which the search
// counts as converged.
const varianceThreshold = 0.001

// Result is the outcome of one genetic search.
type Result struct {
	// Layouts contains up to 3 layouts, best first. Empty if no viable
	// individual could be initialized.
	Layouts             []*Layout
	Stats               []GenerationStats
	GenerationsExecuted int
	ConvergenceReason   string
}

// Search is one evolutionary run. Each run owns its population and its PRNG;
// two runs with identical inputs and seeds produce identical results.
type Search struct {
	catalog     *core.Catalog
	constraints core.Constraints
	eval        *Evaluator
	params      Params
	rng         *rand.Rand
}

// NewSearch prepares a genetic search. The seed fully determines the run.
func NewSearch(catalog *core.Catalog, objective core.ObjectiveType, constraints core.Constraints, params Params, seed int64) *Search {
	return &Search{
		catalog:     catalog,
		constraints: constraints,
		eval:        NewEvaluator(catalog, objective, constraints),
		params:      params,
		//nolint:gosec // evolutionary search is not crypto-relevant, and determinism under seed is a feature here
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Evaluator returns the evaluator used by this search, for computing result
// totals on the returned layouts.
func (s *Search) Evaluator() *Evaluator {
	return s.eval
}

// Run executes the full generational loop. The context is honored between
// generations; on cancellation the best snapshot so far is returned.
func (s *Search) Run(ctx context.Context) Result {
	population := s.initializePopulation()
	for _, individual := range population {
		s.eval.Evaluate(individual)
	}
	if !anyViable(population) {
		return Result{ConvergenceReason: ReasonEmptyPopulation}
	}

	bestFitness := maxFitness(population)
	generationsWithoutImprovement := 0
	var stats []GenerationStats
	reason := ReasonMaxGenerations

generations:
	for generation := range s.params.MaxGenerations {
		select {
		case <-ctx.Done():
			reason = ReasonCancelled
			break generations
		default:
		}

		parents := s.tournamentSelection(population)
		offspring := s.recombine(parents)
		for _, child := range offspring {
			if s.rng.Float64() < s.params.MutationRate {
				s.swapMutation(child)
			}
		}
		for _, child := range offspring {
			s.eval.Evaluate(child)
		}
		population = s.elitistReplacement(population, offspring)

		currentBest := maxFitness(population)
		if currentBest > bestFitness {
			bestFitness = currentBest
			generationsWithoutImprovement = 0
		} else {
			generationsWithoutImprovement++
		}

		avg, variance := fitnessMoments(population)
		stats = append(stats, GenerationStats{
			Generation:      generation,
			BestFitness:     currentBest,
			AvgFitness:      avg,
			FitnessVariance: variance,
		})

		if generationsWithoutImprovement >= s.params.Patience {
			reason = ReasonNoImprovement
			break
		}
		if variance < varianceThreshold {
			reason = ReasonLowVariance
			break
		}
	}

	sortByFitnessDesc(population)
	topCount := min(3, len(population))
	return Result{
		Layouts:             population[:topCount],
		Stats:               stats,
		GenerationsExecuted: len(stats),
		ConvergenceReason:   reason,
	}
}

// initializePopulation creates the starting individuals. Each individual gets
// random dimensions and cell size, then cells are filled in random order with
// uniformly drawn plants as long as all running budgets (water, cost,
// occupied area, maintenance) stay within the constraints.
func (s *Search) initializePopulation() []*Layout {
	population := make([]*Layout, 0, s.params.PopulationSize)
	for range s.params.PopulationSize {
		population = append(population, s.randomIndividual())
	}
	return population
}

func (s *Search) randomIndividual() *Layout {
	area := s.constraints.MaxArea
	aspectRatio := 0.5 + 1.5*s.rng.Float64()
	width := math.Sqrt(area * aspectRatio)
	height := area / width

	cellSize := 0.5 + 0.5*s.rng.Float64()
	rows := int(height / cellSize)
	cols := int(width / cellSize)

	grid := make([][]int, rows)
	for r := range grid {
		grid[r] = make([]int, cols)
	}

	var totalWater, totalCost, usedArea float64
	maintenanceMinutes := 0
	for _, cellIdx := range s.rng.Perm(rows * cols) {
		plant := s.catalog.Plants[s.rng.Intn(len(s.catalog.Plants))]
		if totalWater+plant.WeeklyWaterLiters > s.constraints.MaxWaterWeekly {
			continue
		}
		if totalCost+CostPerPlant(plant) > s.constraints.MaxBudget {
			continue
		}
		if usedArea+plant.Size > s.constraints.MaxArea {
			continue
		}
		if maintenanceMinutes+MaintenanceMinutesPerPlant > s.constraints.MaintenanceWeekly {
			continue
		}
		grid[cellIdx/cols][cellIdx%cols] = plant.ID
		totalWater += plant.WeeklyWaterLiters
		totalCost += CostPerPlant(plant)
		usedArea += plant.Size
		maintenanceMinutes += MaintenanceMinutesPerPlant
	}

	// dimensions are derived from MaxArea, so they always pass validation
	layout, err := NewLayout(width, height, grid)
	if err != nil {
		panic("randomIndividual produced invalid dimensions: " + err.Error())
	}
	return layout
}

// tournamentSelection draws PopulationSize parents. Each draw samples
// TournamentSize individuals uniformly with replacement and keeps the fittest.
func (s *Search) tournamentSelection(population []*Layout) []*Layout {
	parents := make([]*Layout, 0, s.params.PopulationSize)
	for range s.params.PopulationSize {
		winner := population[s.rng.Intn(len(population))]
		for range s.params.TournamentSize - 1 {
			challenger := population[s.rng.Intn(len(population))]
			if challenger.Fitness > winner.Fitness {
				winner = challenger
			}
		}
		parents = append(parents, winner)
	}
	return parents
}

// recombine pairs consecutive parents and applies two-point row-wise
// crossover with probability CrossoverRate. Parents with mismatched grid
// shapes (or fewer than 3 rows) produce clones instead. An unpaired trailing
// parent is cloned unchanged.
func (s *Search) recombine(parents []*Layout) []*Layout {
	offspring := make([]*Layout, 0, len(parents))
	for i := 0; i+1 < len(parents); i += 2 {
		if s.rng.Float64() < s.params.CrossoverRate {
			child1, child2 := s.twoPointCrossover(parents[i], parents[i+1])
			offspring = append(offspring, child1, child2)
		} else {
			offspring = append(offspring, parents[i].Clone(), parents[i+1].Clone())
		}
	}
	if len(parents)%2 == 1 {
		offspring = append(offspring, parents[len(parents)-1].Clone())
	}
	return offspring
}

func (s *Search) twoPointCrossover(parent1, parent2 *Layout) (*Layout, *Layout) {
	rows := parent1.Rows()
	if rows != parent2.Rows() || parent1.Cols() != parent2.Cols() || rows < 3 {
		return parent1.Clone(), parent2.Clone()
	}

	// NOTE: the rng must be consumed in this exact order to keep runs
	// reproducible under seed
	cut1 := 1 + s.rng.Intn(rows-2)
	cut2 := cut1 + 1 + s.rng.Intn(rows-1-cut1)

	child1 := parent1.Clone()
	child2 := parent2.Clone()
	for r := cut1; r < cut2; r++ {
		copy(child1.Grid[r], parent2.Grid[r])
		copy(child2.Grid[r], parent1.Grid[r])
	}
	return child1, child2
}

// swapMutation exchanges the contents of two uniformly drawn cells (possibly
// the same one), including the empty marker.
func (s *Search) swapMutation(l *Layout) {
	rows, cols := l.Rows(), l.Cols()
	if rows == 0 || cols == 0 {
		return
	}
	r1, c1 := s.rng.Intn(rows), s.rng.Intn(cols)
	r2, c2 := s.rng.Intn(rows), s.rng.Intn(cols)
	l.Grid[r1][c1], l.Grid[r2][c2] = l.Grid[r2][c2], l.Grid[r1][c1]
}

// elitistReplacement implements mu+lambda survival: the top EliteCount of the
// current population survive untouched, then the rest competes with the full
// offspring list for the remaining slots.
func (s *Search) elitistReplacement(population, offspring []*Layout) []*Layout {
	sortByFitnessDesc(population)
	elite := population[:s.params.EliteCount]

	combined := make([]*Layout, 0, len(population)-s.params.EliteCount+len(offspring))
	combined = append(combined, population[s.params.EliteCount:]...)
	combined = append(combined, offspring...)
	sortByFitnessDesc(combined)

	next := make([]*Layout, 0, s.params.PopulationSize)
	next = append(next, elite...)
	next = append(next, combined[:s.params.PopulationSize-s.params.EliteCount]...)
	return next
}

func sortByFitnessDesc(population []*Layout) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Fitness > population[j].Fitness
	})
}

// anyViable reports whether evolution can make progress: at least one
// individual must have placed a plant and scored a nonzero fitness.
func anyViable(population []*Layout) bool {
	for _, individual := range population {
		if individual.TotalPlants() > 0 && individual.Fitness > 0 {
			return true
		}
	}
	return false
}

func maxFitness(population []*Layout) float64 {
	best := population[0].Fitness
	for _, individual := range population[1:] {
		if individual.Fitness > best {
			best = individual.Fitness
		}
	}
	return best
}

func fitnessMoments(population []*Layout) (avg, variance float64) {
	var sum float64
	for _, individual := range population {
		sum += individual.Fitness
	}
	avg = sum / float64(len(population))
	for _, individual := range population {
		delta := individual.Fitness - avg
		variance += delta * delta
	}
	variance /= float64(len(population))
	return avg, variance
}
