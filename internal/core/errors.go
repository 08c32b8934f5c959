// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
)

// InvalidInputError is returned for bound violations in requests or domain
// value objects. It is surfaced to the caller and never retried.
type InvalidInputError struct {
	Field  string
	Reason string
}

// Error implements the builtin/error interface.
func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Reason)
}

// InvalidInputf builds an InvalidInputError with a formatted reason.
func InvalidInputf(field, reason string, args ...any) InvalidInputError {
	return InvalidInputError{Field: field, Reason: fmt.Sprintf(reason, args...)}
}

// InsufficientDataError is returned when there is not enough data to run an
// algorithm, e.g. too few plants for optimization or too few users for
// clustering.
type InsufficientDataError struct {
	What string
	Have int
	Need int
}

// Error implements the builtin/error interface.
func (e InsufficientDataError) Error() string {
	return fmt.Sprintf("not enough %s: have %d, need at least %d", e.What, e.Have, e.Need)
}

// CatalogUnavailableError wraps a downstream store failure during a catalog
// read. Retrying is the caller's policy.
type CatalogUnavailableError struct {
	Inner error
}

// Error implements the builtin/error interface.
func (e CatalogUnavailableError) Error() string {
	return "plant catalog unavailable: " + e.Inner.Error()
}

// Unwrap implements the interface used by errors.Is and errors.As.
func (e CatalogUnavailableError) Unwrap() error {
	return e.Inner
}

// PersistenceError wraps a model save/load failure. When it occurs during
// training, the training run counts as failed atomically and the previously
// published model stays active.
type PersistenceError struct {
	Op    string
	Inner error
}

// Error implements the builtin/error interface.
func (e PersistenceError) Error() string {
	return fmt.Sprintf("while %s: %s", e.Op, e.Inner.Error())
}

// Unwrap implements the interface used by errors.Is and errors.As.
func (e PersistenceError) Unwrap() error {
	return e.Inner
}
