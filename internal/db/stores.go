// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	gorp "github.com/go-gorp/gorp/v3"
	"github.com/lib/pq"
	"github.com/sapcc/go-bits/sqlext"

	"github.com/sapcc/plantgen/internal/core"
)

// CatalogStore loads the plant catalog from the database. It implements
// core.CatalogStore.
type CatalogStore struct {
	DB *gorp.DbMap
}

// ListPlants implements the core.CatalogStore interface.
func (s CatalogStore) ListPlants(ctx context.Context) ([]core.Plant, error) {
	var rows []PlantRow
	_, err := s.DB.WithContext(ctx).Select(&rows, `SELECT * FROM plants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("cannot load plants: %w", err)
	}

	plants := make([]core.Plant, len(rows))
	for i, row := range rows {
		err := json.Unmarshal([]byte(row.Document), &plants[i])
		if err != nil {
			return nil, fmt.Errorf("cannot parse plant %d: %w", row.ID, err)
		}
	}
	return plants, nil
}

// ListCompatibilities implements the core.CatalogStore interface.
func (s CatalogStore) ListCompatibilities(ctx context.Context) ([]core.CompatibilityPair, error) {
	var rows []CompatibilityRow
	_, err := s.DB.WithContext(ctx).Select(&rows, `SELECT * FROM compatibilities ORDER BY species1, species2`)
	if err != nil {
		return nil, fmt.Errorf("cannot load compatibilities: %w", err)
	}

	pairs := make([]core.CompatibilityPair, len(rows))
	for i, row := range rows {
		pairs[i] = core.CompatibilityPair{
			SpeciesA:      row.Species1,
			SpeciesB:      row.Species2,
			Compatibility: row.Compatibility,
		}
	}
	return pairs, nil
}

// UserGardenStore reads user and garden documents and writes cluster labels.
// It implements core.UserGardenStore.
type UserGardenStore struct {
	DB *gorp.DbMap
}

var listActiveGardensQuery = sqlext.SimplifyWhitespace(`
	SELECT * FROM gardens WHERE active AND owner_id = ANY($1) ORDER BY id
`)

// ListUsers implements the core.UserGardenStore interface.
func (s UserGardenStore) ListUsers(ctx context.Context) ([]core.UserRecord, error) {
	var rows []User
	_, err := s.DB.WithContext(ctx).Select(&rows, `SELECT * FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("cannot load users: %w", err)
	}

	users := make([]core.UserRecord, len(rows))
	for i, row := range rows {
		users[i], err = unpackUser(row)
		if err != nil {
			return nil, err
		}
	}
	return users, nil
}

// GetUser implements the core.UserGardenStore interface.
func (s UserGardenStore) GetUser(ctx context.Context, userID string) (core.UserRecord, error) {
	var row User
	err := s.DB.WithContext(ctx).SelectOne(&row, `SELECT * FROM users WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserRecord{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.UserRecord{}, fmt.Errorf("cannot load user %s: %w", userID, err)
	}
	return unpackUser(row)
}

// ListGardensByOwner implements the core.UserGardenStore interface.
func (s UserGardenStore) ListGardensByOwner(ctx context.Context, ownerID string) ([]core.GardenRecord, error) {
	var rows []Garden
	_, err := s.DB.WithContext(ctx).Select(&rows, `SELECT * FROM gardens WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("cannot load gardens of user %s: %w", ownerID, err)
	}
	return unpackGardens(rows)
}

// ListActiveGardensByOwners implements the core.UserGardenStore interface.
func (s UserGardenStore) ListActiveGardensByOwners(ctx context.Context, ownerIDs []string) ([]core.GardenRecord, error) {
	var rows []Garden
	_, err := s.DB.WithContext(ctx).Select(&rows, listActiveGardensQuery, pq.Array(ownerIDs))
	if err != nil {
		return nil, fmt.Errorf("cannot load active gardens: %w", err)
	}
	return unpackGardens(rows)
}

// SetUserCluster implements the core.UserGardenStore interface.
func (s UserGardenStore) SetUserCluster(ctx context.Context, userID string, clusterID int) error {
	result, err := s.DB.WithContext(ctx).Exec(`UPDATE users SET cluster_id = $1 WHERE id = $2`, clusterID, userID)
	if err != nil {
		return fmt.Errorf("cannot set cluster of user %s: %w", userID, err)
	}
	rowCount, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowCount == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// InsertTrainingRun implements the core.UserGardenStore interface.
func (s UserGardenStore) InsertTrainingRun(ctx context.Context, run core.TrainingRun) error {
	sizes, err := json.Marshal(run.ClusterSizes)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Insert(&TrainingRunRow{
		UUID:         run.UUID,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		ClusterCount: run.ClusterCount,
		SampleCount:  run.SampleCount,
		Silhouette:   run.Silhouette,
		Cost:         run.Cost,
		ClusterSizes: string(sizes),
		ModelVersion: run.ModelVersion,
		Success:      run.Success,
		ErrorMessage: run.ErrorMessage,
	})
	if err != nil {
		return fmt.Errorf("cannot record training run %s: %w", run.UUID, err)
	}
	return nil
}

// LatestTrainingRun implements the core.UserGardenStore interface.
func (s UserGardenStore) LatestTrainingRun(ctx context.Context) (core.TrainingRun, bool, error) {
	var row TrainingRunRow
	err := s.DB.WithContext(ctx).SelectOne(&row, `SELECT * FROM training_runs ORDER BY started_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TrainingRun{}, false, nil
	}
	if err != nil {
		return core.TrainingRun{}, false, fmt.Errorf("cannot load training history: %w", err)
	}

	var sizes []int
	err = json.Unmarshal([]byte(row.ClusterSizes), &sizes)
	if err != nil {
		return core.TrainingRun{}, false, fmt.Errorf("cannot parse training run %s: %w", row.UUID, err)
	}
	return core.TrainingRun{
		UUID:         row.UUID,
		StartedAt:    row.StartedAt,
		FinishedAt:   row.FinishedAt,
		ClusterCount: row.ClusterCount,
		SampleCount:  row.SampleCount,
		Silhouette:   row.Silhouette,
		Cost:         row.Cost,
		ClusterSizes: sizes,
		ModelVersion: row.ModelVersion,
		Success:      row.Success,
		ErrorMessage: row.ErrorMessage,
	}, true, nil
}

func unpackUser(row User) (core.UserRecord, error) {
	user := core.UserRecord{ID: row.ID}
	err := json.Unmarshal([]byte(row.Document), &user.Document)
	if err != nil {
		return core.UserRecord{}, fmt.Errorf("cannot parse document of user %s: %w", row.ID, err)
	}
	if row.ClusterID != nil {
		clusterID := int(*row.ClusterID)
		user.ClusterID = &clusterID
	}
	return user, nil
}

func unpackGardens(rows []Garden) ([]core.GardenRecord, error) {
	gardens := make([]core.GardenRecord, len(rows))
	for i, row := range rows {
		gardens[i] = core.GardenRecord{ID: row.ID, OwnerID: row.OwnerID, Active: row.Active}
		err := json.Unmarshal([]byte(row.Document), &gardens[i].Document)
		if err != nil {
			return nil, fmt.Errorf("cannot parse document of garden %s: %w", row.ID, err)
		}
	}
	return gardens, nil
}
