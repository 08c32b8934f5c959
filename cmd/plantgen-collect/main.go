// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/httpext"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/must"
	"github.com/sapcc/go-bits/osext"

	"github.com/sapcc/plantgen/internal/collector"
	"github.com/sapcc/plantgen/internal/core"
	"github.com/sapcc/plantgen/internal/db"
	"github.com/sapcc/plantgen/internal/models"
	"github.com/sapcc/plantgen/internal/push"
)

func main() {
	logg.ShowDebug = osext.GetenvBool("PLANTGEN_DEBUG")
	bininfo.SetTaskName("collect")

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <config-file>\n", os.Args[0])
		os.Exit(1)
	}
	cfg := core.NewConfiguration(os.Args[1])
	ctx := httpext.ContextWithSIGINT(context.Background(), 10*time.Second)

	// connect to database
	dbConn := must.Return(db.Init())
	dbMap := db.InitORM(dbConn)
	store := db.UserGardenStore{DB: dbMap}

	// restore the last published cluster model, if any; the first scheduled
	// training produces one otherwise
	manager := models.NewManager(cfg.Clustering.ModelDir, cfg.Clustering.ModelVersion)
	must.Succeed(manager.LoadFromDisk())

	c := collector.NewCollector(store, manager, initPushSender(ctx), cfg)

	// start background jobs
	go c.TrainingJob(prometheus.DefaultRegisterer).Run(ctx)
	go c.BroadcastJob(prometheus.DefaultRegisterer).Run(ctx)

	// expose health check and metrics
	mux := http.NewServeMux()
	mux.Handle("/", httpapi.Compose(httpapi.HealthCheckAPI{SkipRequestLog: true}))
	mux.Handle("/metrics", promhttp.Handler())

	listenAddr := osext.GetenvOrDefault("PLANTGEN_COLLECTOR_LISTEN_ADDRESS", ":8081")
	logg.Info("%s %s starting up, listening on %s", bininfo.Component(), bininfo.VersionOr("unknown"), listenAddr)
	must.Succeed(httpext.ListenAndServeContext(ctx, listenAddr, mux))
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
