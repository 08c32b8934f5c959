// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package test contains the shared setup code and fakes for plantgen's unit
// tests. Tests run fully in-memory; models are written to a per-test temp
// directory.
package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/mock"
	"github.com/sapcc/go-bits/osext"

	"github.com/sapcc/plantgen/internal/clustering"
	"github.com/sapcc/plantgen/internal/collector"
	"github.com/sapcc/plantgen/internal/core"
	"github.com/sapcc/plantgen/internal/models"
	"github.com/sapcc/plantgen/internal/push"
	"github.com/sapcc/plantgen/internal/recommend"
)

type setupParams struct {
	WithAPIHandler bool
	APIBuilder     func(*core.Catalog, core.UserGardenStore, *models.Manager, *recommend.Scorer, *collector.Collector, func() time.Time) httpapi.API
}

// SetupOption is an option that can be given to NewSetup().
type SetupOption func(*setupParams)

// WithAPIHandler is a SetupOption that initializes a http.Handler with the
// plantgen API. The `apiBuilder` function signature matches NewV1API(). We
// cannot directly call this function because that would create an import
// cycle, so it must be given by the caller here.
func WithAPIHandler(apiBuilder func(*core.Catalog, core.UserGardenStore, *models.Manager, *recommend.Scorer, *collector.Collector, func() time.Time) httpapi.API) SetupOption {
	return func(params *setupParams) {
		params.WithAPIHandler = true
		params.APIBuilder = apiBuilder
	}
}

// Setup contains all the pieces that are needed for most tests.
type Setup struct {
	// fields that are always set
	Ctx       context.Context //nolint:containedctx // only used in tests
	Catalog   *core.Catalog
	Store     *FakeUserGardenStore
	Models    *models.Manager
	Clock     *mock.Clock
	Pusher    *RecordingSender
	Collector *collector.Collector
	Scorer    *recommend.Scorer
	Config    core.Configuration
	// fields that are only set if their respective SetupOptions are given
	Handler http.Handler
}

// NewSetup prepares most or all pieces of plantgen for a test.
func NewSetup(t *testing.T, opts ...SetupOption) Setup {
	t.Helper()
	logg.ShowDebug = osext.GetenvBool("PLANTGEN_DEBUG")
	var params setupParams
	for _, option := range opts {
		option(&params)
	}

	var s Setup
	s.Ctx = t.Context()
	s.Catalog = StandardCatalog()
	s.Store = NewFakeUserGardenStore()
	s.Models = models.NewManager(t.TempDir(), "v1")
	s.Clock = mock.NewClock()
	s.Pusher = &RecordingSender{}
	s.Config = core.Configuration{
		Clustering: core.ClusteringConfiguration{
			ModelDir:     s.Models.Dir,
			ModelVersion: "v1",
			MinClusters:  2,
			MaxClusters:  10,
			Method:       "silhouette",
		},
		Schedule: core.ScheduleConfiguration{
			RetrainDayOfMonth: 1,
			RetrainHour:       3,
			BroadcastWeekday:  pointerTo(int(time.Monday)),
			BroadcastHour:     9,
		},
	}

	s.Collector = collector.NewCollector(s.Store, s.Models, s.Pusher, s.Config)
	s.Collector.TimeNow = s.Clock.Now
	s.Collector.AddJitter = func(d time.Duration) time.Duration { return d }
	s.Collector.Once = true

	s.Scorer = &recommend.Scorer{
		Store:     s.Store,
		Models:    s.Models,
		Extractor: clustering.FeatureExtractor{TimeNow: s.Clock.Now},
		TimeNow:   s.Clock.Now,
	}

	if params.WithAPIHandler {
		s.Handler = httpapi.Compose(
			params.APIBuilder(s.Catalog, s.Store, s.Models, s.Scorer, s.Collector, s.Clock.Now),
			httpapi.WithoutLogging(),
		)
	}
	return s
}

func pointerTo[T any](value T) *T {
	return &value
}

// interface checks
var (
	_ core.CatalogStore    = FakeCatalogStore{}
	_ core.UserGardenStore = &FakeUserGardenStore{}
	_ push.Sender          = &RecordingSender{}
)
