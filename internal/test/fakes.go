// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/sapcc/plantgen/internal/core"
)

// FakeCatalogStore serves a fixed plant list from memory. It implements
// core.CatalogStore.
type FakeCatalogStore struct {
	Plants []core.Plant
	Pairs  []core.CompatibilityPair
}

// ListPlants implements the core.CatalogStore interface.
func (s FakeCatalogStore) ListPlants(context.Context) ([]core.Plant, error) {
	return s.Plants, nil
}

// ListCompatibilities implements the core.CatalogStore interface.
func (s FakeCatalogStore) ListCompatibilities(context.Context) ([]core.CompatibilityPair, error) {
	return s.Pairs, nil
}

// FakeUserGardenStore is an in-memory core.UserGardenStore. All listings are
// sorted by ID for deterministic test output.
type FakeUserGardenStore struct {
	mutex   sync.Mutex
	users   map[string]core.UserRecord
	gardens map[string]core.GardenRecord
	runs    []core.TrainingRun

	// NextListUsersError makes the next ListUsers call fail once, to
	// simulate a transient database outage.
	NextListUsersError error
}

// NewFakeUserGardenStore creates an empty FakeUserGardenStore.
func NewFakeUserGardenStore() *FakeUserGardenStore {
	return &FakeUserGardenStore{
		users:   make(map[string]core.UserRecord),
		gardens: make(map[string]core.GardenRecord),
	}
}

// AddUser inserts or replaces a user.
func (s *FakeUserGardenStore) AddUser(user core.UserRecord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.users[user.ID] = user
}

// AddGarden inserts or replaces a garden.
func (s *FakeUserGardenStore) AddGarden(garden core.GardenRecord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.gardens[garden.ID] = garden
}

// ListUsers implements the core.UserGardenStore interface.
func (s *FakeUserGardenStore) ListUsers(context.Context) ([]core.UserRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.NextListUsersError; err != nil {
		s.NextListUsersError = nil
		return nil, err
	}
	users := make([]core.UserRecord, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	slices.SortFunc(users, func(lhs, rhs core.UserRecord) int {
		return strings.Compare(lhs.ID, rhs.ID)
	})
	return users, nil
}

// GetUser implements the core.UserGardenStore interface.
func (s *FakeUserGardenStore) GetUser(_ context.Context, userID string) (core.UserRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return core.UserRecord{}, core.ErrUserNotFound
	}
	return user, nil
}

// ListGardensByOwner implements the core.UserGardenStore interface.
func (s *FakeUserGardenStore) ListGardensByOwner(_ context.Context, ownerID string) ([]core.GardenRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var gardens []core.GardenRecord
	for _, garden := range s.gardens {
		if garden.OwnerID == ownerID {
			gardens = append(gardens, garden)
		}
	}
	sortGardens(gardens)
	return gardens, nil
}

// ListActiveGardensByOwners implements the core.UserGardenStore interface.
func (s *FakeUserGardenStore) ListActiveGardensByOwners(_ context.Context, ownerIDs []string) ([]core.GardenRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var gardens []core.GardenRecord
	for _, garden := range s.gardens {
		if garden.Active && slices.Contains(ownerIDs, garden.OwnerID) {
			gardens = append(gardens, garden)
		}
	}
	sortGardens(gardens)
	return gardens, nil
}

// SetUserCluster implements the core.UserGardenStore interface.
func (s *FakeUserGardenStore) SetUserCluster(_ context.Context, userID string, clusterID int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return core.ErrUserNotFound
	}
	user.ClusterID = &clusterID
	s.users[userID] = user
	return nil
}

// InsertTrainingRun implements the core.UserGardenStore interface.
func (s *FakeUserGardenStore) InsertTrainingRun(_ context.Context, run core.TrainingRun) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

// LatestTrainingRun implements the core.UserGardenStore interface.
func (s *FakeUserGardenStore) LatestTrainingRun(context.Context) (core.TrainingRun, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.runs) == 0 {
		return core.TrainingRun{}, false, nil
	}
	latest := s.runs[0]
	for _, run := range s.runs[1:] {
		if run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	return latest, true, nil
}

// TrainingRunCount returns how many training runs were recorded.
func (s *FakeUserGardenStore) TrainingRunCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.runs)
}

func sortGardens(gardens []core.GardenRecord) {
	slices.SortFunc(gardens, func(lhs, rhs core.GardenRecord) int {
		return strings.Compare(lhs.ID, rhs.ID)
	})
}

// SentNotification is one notification captured by RecordingSender.
type SentNotification struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// RecordingSender captures notifications instead of sending them. It
// implements push.Sender.
type RecordingSender struct {
	mutex sync.Mutex
	sent  []SentNotification
	// FailingTokens simulate delivery failures.
	FailingTokens map[string]error
}

// Send implements the push.Sender interface.
func (s *RecordingSender) Send(_ context.Context, token, title, body string, data map[string]string) error {
	if err, ok := s.FailingTokens[token]; ok {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sent = append(s.sent, SentNotification{Token: token, Title: title, Body: body, Data: data})
	return nil
}

// Sent returns all captured notifications.
func (s *RecordingSender) Sent() []SentNotification {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return slices.Clone(s.sent)
}
