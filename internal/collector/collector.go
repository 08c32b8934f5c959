// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package collector contains the background jobs performed by
// plantgen-collect: periodic retraining of the cluster model and the weekly
// recommendation broadcast.
package collector

import (
	"math/rand"
	"time"

	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/plantgen/internal/core"
	"github.com/sapcc/plantgen/internal/models"
	"github.com/sapcc/plantgen/internal/push"
)

// Collector provides methods that implement the background jobs performed by
// plantgen-collect. The struct contains references to the store, the model
// manager and the push sender; basically everything that needs to be replaced
// by a mock implementation for the collector's unit tests.
type Collector struct {
	Store  core.UserGardenStore
	Models *models.Manager
	Pusher push.Sender
	Config core.Configuration

	// lastBroadcast gates the weekly broadcast. The zero value means "not
	// polled yet"; the first poll only arms the gate, so restarts do not
	// re-broadcast a slot that already fired.
	lastBroadcast time.Time

	// Usually logg.Error, but can be changed inside unit tests.
	LogError func(msg string, args ...any)
	// Usually time.Now, but can be changed inside unit tests.
	TimeNow func() time.Time
	// Usually addJitter, but can be changed inside unit tests.
	AddJitter func(time.Duration) time.Duration
	// When set to true, suppresses the usual non-returning behavior of
	// collector jobs.
	Once bool
}

// NewCollector creates a Collector instance.
func NewCollector(store core.UserGardenStore, manager *models.Manager, pusher push.Sender, cfg core.Configuration) *Collector {
	return &Collector{
		Store:     store,
		Models:    manager,
		Pusher:    pusher,
		Config:    cfg,
		LogError:  logg.Error,
		TimeNow:   time.Now,
		AddJitter: addJitter,
		Once:      false,
	}
}

// addJitter returns a random duration within +/- 10% of the requested value.
// This can be used to even out the load on a scheduled job over time, by
// spreading jobs that would normally be scheduled right next to each other out
// over time without corrupting the individual schedules too much.
func addJitter(duration time.Duration) time.Duration {
	//nolint:gosec // This is not crypto-relevant, so math/rand is okay.
	r := rand.Float64() //NOTE: 0 <= r < 1
	return time.Duration(float64(duration) * (0.9 + 0.2*r))
}
