// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package optimizer

import (
	"slices"

	"github.com/sapcc/plantgen/internal/core"
)

// EmptyCell marks an unplanted grid cell. Plant IDs are always >= 1.
const EmptyCell = 0

// Layout is one candidate garden design, i.e. one chromosome in the genetic
// search. The grid shape is fixed over a layout's life; evolution only swaps
// cell contents or recombines whole rows.
type Layout struct {
	// Width and Height are the garden dimensions in meters, with
	// 1 <= Width*Height <= 5.
	Width  float64
	Height float64
	// Grid contains plant IDs, row by row. EmptyCell marks unplanted cells.
	Grid [][]int

	// Metrics, filled in by the Evaluator. All in [0,1].
	Fitness float64
	CEE     float64
	PSNTPA  float64
	WCE     float64
	UE      float64
}

// NewLayout validates the dimensions and builds a layout around the given
// grid. The grid is taken over without copying.
func NewLayout(width, height float64, grid [][]int) (*Layout, error) {
	if width <= 0 || height <= 0 {
		return nil, core.InvalidInputf("layout.dimensions", "must be positive, got %gx%g", width, height)
	}
	area := width * height
	if area < 1.0 || area > 5.0 {
		return nil, core.InvalidInputf("layout.area", "must be between 1 and 5 m², got %.2f", area)
	}
	return &Layout{Width: width, Height: height, Grid: grid}, nil
}

// Area returns the garden area in m².
func (l *Layout) Area() float64 {
	return l.Width * l.Height
}

// Rows returns the number of grid rows.
func (l *Layout) Rows() int {
	return len(l.Grid)
}

// Cols returns the number of grid columns.
func (l *Layout) Cols() int {
	if len(l.Grid) == 0 {
		return 0
	}
	return len(l.Grid[0])
}

// TotalPlants counts all non-empty cells.
func (l *Layout) TotalPlants() int {
	total := 0
	for _, row := range l.Grid {
		for _, cell := range row {
			if cell != EmptyCell {
				total++
			}
		}
	}
	return total
}

// CountOf counts how often the given plant ID appears in the grid.
func (l *Layout) CountOf(plantID int) int {
	count := 0
	for _, row := range l.Grid {
		for _, cell := range row {
			if cell == plantID {
				count++
			}
		}
	}
	return count
}

// PlantCounts returns the multiset of placed plants as an ID -> count map.
func (l *Layout) PlantCounts() map[int]int {
	counts := make(map[int]int)
	for _, row := range l.Grid {
		for _, cell := range row {
			if cell != EmptyCell {
				counts[cell]++
			}
		}
	}
	return counts
}

// DistinctIDs returns the distinct plant IDs in the grid, sorted ascending
// for deterministic iteration.
func (l *Layout) DistinctIDs() []int {
	counts := l.PlantCounts()
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy of the layout, including grid and metrics.
// This is the only allowed duplication path during evolution, so that parents
// remain untouched by crossover and mutation.
func (l *Layout) Clone() *Layout {
	grid := make([][]int, len(l.Grid))
	for idx, row := range l.Grid {
		grid[idx] = slices.Clone(row)
	}
	dup := *l
	dup.Grid = grid
	return &dup
}
