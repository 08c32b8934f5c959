// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"math"

	"github.com/sapcc/plantgen/internal/core"
)

// StandardScaler standardizes numeric features by z-score. The mean and
// standard deviation learned during Fit are part of the persisted model, so
// that Transform behaves identically after a model reload.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fit learns per-feature mean and standard deviation. Constant features get
// std 1 so that Transform maps them to 0 instead of dividing by zero.
func (s *StandardScaler) Fit(matrix [][]float64) error {
	if len(matrix) == 0 {
		return core.InsufficientDataError{What: "samples for scaling", Have: 0, Need: 1}
	}
	featureCount := len(matrix[0])
	s.Mean = make([]float64, featureCount)
	s.Std = make([]float64, featureCount)

	for _, row := range matrix {
		for f, value := range row {
			s.Mean[f] += value
		}
	}
	n := float64(len(matrix))
	for f := range s.Mean {
		s.Mean[f] /= n
	}
	for _, row := range matrix {
		for f, value := range row {
			delta := value - s.Mean[f]
			s.Std[f] += delta * delta
		}
	}
	for f := range s.Std {
		s.Std[f] = math.Sqrt(s.Std[f] / n)
		if s.Std[f] == 0 {
			s.Std[f] = 1
		}
	}
	return nil
}

// Transform returns a standardized copy of the matrix.
func (s *StandardScaler) Transform(matrix [][]float64) [][]float64 {
	result := make([][]float64, len(matrix))
	for i, row := range matrix {
		scaled := make([]float64, len(row))
		for f, value := range row {
			scaled[f] = (value - s.Mean[f]) / s.Std[f]
		}
		result[i] = scaled
	}
	return result
}

// TransformOne standardizes a single feature vector.
func (s *StandardScaler) TransformOne(row []float64) []float64 {
	scaled := make([]float64, len(row))
	for f, value := range row {
		scaled[f] = (value - s.Mean[f]) / s.Std[f]
	}
	return scaled
}
