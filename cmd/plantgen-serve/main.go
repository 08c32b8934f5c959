// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/httpext"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/must"
	"github.com/sapcc/go-bits/osext"

	"github.com/sapcc/plantgen/internal/api"
	"github.com/sapcc/plantgen/internal/clustering"
	"github.com/sapcc/plantgen/internal/collector"
	"github.com/sapcc/plantgen/internal/core"
	"github.com/sapcc/plantgen/internal/db"
	"github.com/sapcc/plantgen/internal/models"
	"github.com/sapcc/plantgen/internal/pprofapi"
	"github.com/sapcc/plantgen/internal/push"
	"github.com/sapcc/plantgen/internal/recommend"
)

func main() {
	logg.ShowDebug = osext.GetenvBool("PLANTGEN_DEBUG")
	bininfo.SetTaskName("serve")

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <config-file>\n", os.Args[0])
		os.Exit(1)
	}
	cfg := core.NewConfiguration(os.Args[1])
	ctx := httpext.ContextWithSIGINT(context.Background(), 10*time.Second)

	// connect to database
	dbConn := must.Return(db.Init())
	dbMap := db.InitORM(dbConn)
	catalog := must.Return(core.LoadCatalog(ctx, db.CatalogStore{DB: dbMap}))
	store := db.UserGardenStore{DB: dbMap}

	// restore the last published cluster model, if any
	manager := models.NewManager(cfg.Clustering.ModelDir, cfg.Clustering.ModelVersion)
	must.Succeed(manager.LoadFromDisk())

	pusher := initPushSender(ctx)
	c := collector.NewCollector(store, manager, pusher, cfg)
	scorer := &recommend.Scorer{
		Store:     store,
		Models:    manager,
		Extractor: clustering.FeatureExtractor{},
	}

	// build HTTP handler
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"HEAD", "GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "User-Agent"},
	})
	mux := http.NewServeMux()
	mux.Handle("/", httpapi.Compose(
		api.NewV1API(catalog, store, manager, scorer, c, time.Now),
		httpapi.HealthCheckAPI{SkipRequestLog: true},
		pprofapi.API{IsAuthorized: pprofapi.IsRequestFromLocalhost},
	))
	mux.Handle("/metrics", promhttp.Handler())

	listenAddr := osext.GetenvOrDefault("PLANTGEN_API_LISTEN_ADDRESS", ":8080")
	logg.Info("%s %s starting up, listening on %s", bininfo.Component(), bininfo.VersionOr("unknown"), listenAddr)
	must.Succeed(httpext.ListenAndServeContext(ctx, listenAddr, corsMiddleware.Handler(mux)))
}

// initPushSender builds the FCM sender if credentials are configured, and
// falls back to logging otherwise.
func initPushSender(ctx context.Context) push.Sender {
	credentialsFile := os.Getenv("PLANTGEN_FCM_CREDENTIALS_PATH")
	if credentialsFile == "" {
		logg.Info("PLANTGEN_FCM_CREDENTIALS_PATH not set, push notifications are disabled")
		return push.NopSender{}
	}
	return must.Return(push.NewFCMSender(ctx, credentialsFile))
}
