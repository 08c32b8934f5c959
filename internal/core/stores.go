// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned by GetUser for unknown user IDs.
var ErrUserNotFound = errors.New("no such user")

// UserRecord is one user as seen by the clustering core. The document is an
// opaque map; the feature pipeline extracts known keys with defaults.
type UserRecord struct {
	ID       string
	Document map[string]any
	// ClusterID is nil until the first training run has assigned a label.
	ClusterID *int
}

// PushToken returns the FCM device token from the user document, or "".
func (u UserRecord) PushToken() string {
	token, _ := u.Document["tokenFCM"].(string)
	return token
}

// GardenRecord is one stored garden as seen by the clustering and
// recommendation cores. The document is an opaque map.
type GardenRecord struct {
	ID       string
	OwnerID  string
	Active   bool
	Document map[string]any
}

// TrainingRun is one row of the training history log.
type TrainingRun struct {
	UUID         string
	StartedAt    time.Time
	FinishedAt   time.Time
	ClusterCount int
	SampleCount  int
	Silhouette   float64
	Cost         float64
	ClusterSizes []int
	ModelVersion string
	Success      bool
	ErrorMessage string
}

// UserGardenStore is the capability record through which user and garden
// documents are read and cluster labels are written. Implementations live in
// internal/db and internal/test.
type UserGardenStore interface {
	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]UserRecord, error)
	// GetUser returns one user by ID, or ErrUserNotFound.
	GetUser(ctx context.Context, userID string) (UserRecord, error)
	// ListGardensByOwner returns all gardens of one user.
	ListGardensByOwner(ctx context.Context, ownerID string) ([]GardenRecord, error)
	// ListActiveGardensByOwners returns all active gardens owned by any of the
	// given users.
	ListActiveGardensByOwners(ctx context.Context, ownerIDs []string) ([]GardenRecord, error)
	// SetUserCluster updates one user's cluster label.
	SetUserCluster(ctx context.Context, userID string, clusterID int) error
	// InsertTrainingRun appends to the training history log.
	InsertTrainingRun(ctx context.Context, run TrainingRun) error
	// LatestTrainingRun returns the most recent history entry, with ok = false
	// if no training has ever run.
	LatestTrainingRun(ctx context.Context) (run TrainingRun, ok bool, err error)
}
