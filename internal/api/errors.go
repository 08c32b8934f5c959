// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"net/http"

	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/plantgen/internal/collector"
	"github.com/sapcc/plantgen/internal/core"
)

// respondWithError translates domain errors into HTTP status codes:
// unprocessable input and too-small datasets report 422, unknown users 404,
// training overlap 409, and everything else is a plain 500.
func respondWithError(w http.ResponseWriter, err error) {
	var (
		invalidInput     core.InvalidInputError
		insufficientData core.InsufficientDataError
	)
	switch {
	case errors.As(err, &invalidInput):
		http.Error(w, invalidInput.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &insufficientData):
		http.Error(w, insufficientData.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, collector.ErrTrainingOverlap):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		respondwith.ErrorText(w, err)
	}
}
