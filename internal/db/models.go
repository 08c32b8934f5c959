// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"time"

	"github.com/go-gorp/gorp/v3"
)

// User contains a record from the `users` table. The document column holds
// the raw profile JSON as synced from the mobile app backend.
type User struct {
	ID        string `db:"id"`
	Document  string `db:"document"`
	ClusterID *int64 `db:"cluster_id"` // pointer type to allow for NULL value
}

// Garden contains a record from the `gardens` table.
type Garden struct {
	ID       string `db:"id"`
	OwnerID  string `db:"owner_id"`
	Active   bool   `db:"active"`
	Document string `db:"document"`
}

// PlantRow contains a record from the `plants` table.
type PlantRow struct {
	ID       int64  `db:"id"`
	Document string `db:"document"`
}

// CompatibilityRow contains a record from the `compatibilities` table.
type CompatibilityRow struct {
	Species1      string  `db:"species1"`
	Species2      string  `db:"species2"`
	Compatibility float64 `db:"compatibility"`
}

// TrainingRunRow contains a record from the `training_runs` table.
type TrainingRunRow struct {
	UUID         string    `db:"uuid"`
	StartedAt    time.Time `db:"started_at"`
	FinishedAt   time.Time `db:"finished_at"`
	ClusterCount int       `db:"cluster_count"`
	SampleCount  int       `db:"sample_count"`
	Silhouette   float64   `db:"silhouette"`
	Cost         float64   `db:"cost"`
	ClusterSizes string    `db:"cluster_sizes"` // JSON-encoded []int
	ModelVersion string    `db:"model_version"`
	Success      bool      `db:"success"`
	ErrorMessage string    `db:"error_message"`
}

// initGorp is used by Init() to setup the ORM part of the database connection.
func initGorp(db *gorp.DbMap) {
	db.AddTableWithName(User{}, "users").SetKeys(false, "id")
	db.AddTableWithName(Garden{}, "gardens").SetKeys(false, "id")
	db.AddTableWithName(PlantRow{}, "plants").SetKeys(false, "id")
	db.AddTableWithName(CompatibilityRow{}, "compatibilities").SetKeys(false, "species1", "species2")
	db.AddTableWithName(TrainingRunRow{}, "training_runs").SetKeys(false, "uuid")
}
