// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"os"
	"time"

	"github.com/sapcc/go-bits/errext"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/osext"
	yaml "gopkg.in/yaml.v2"
)

// Configuration contains the configuration data for both the API and the
// collector. It is instantiated from YAML once during startup.
type Configuration struct {
	Clustering ClusteringConfiguration `yaml:"clustering"`
	Schedule   ScheduleConfiguration   `yaml:"schedule"`
}

// ClusteringConfiguration appears in type Configuration.
type ClusteringConfiguration struct {
	// ModelDir is where trained model blobs are stored.
	// Defaults to $PLANTGEN_MODEL_DIR or "/var/lib/plantgen".
	ModelDir string `yaml:"model_dir"`
	// ModelVersion names the model blob on disk. Bump to force a retrain
	// instead of loading the previous blob.
	ModelVersion string `yaml:"model_version"`
	// MinClusters and MaxClusters bound the k sweep.
	MinClusters int `yaml:"min_clusters"`
	MaxClusters int `yaml:"max_clusters"`
	// Method selects how the k sweep is scored: "silhouette" or "elbow".
	Method string `yaml:"optimal_cluster_method"`
}

// ScheduleConfiguration appears in type Configuration.
type ScheduleConfiguration struct {
	// RetrainDayOfMonth and RetrainHour schedule the monthly retrain job.
	RetrainDayOfMonth int `yaml:"retrain_day_of_month"`
	RetrainHour       int `yaml:"retrain_hour"`
	// BroadcastWeekday and BroadcastHour schedule the weekly recommendation
	// broadcast. Weekday follows time.Weekday, so 0 = Sunday is a valid
	// choice; a pointer distinguishes it from an absent key.
	BroadcastWeekday *int `yaml:"broadcast_weekday"`
	BroadcastHour    int `yaml:"broadcast_hour"`
}

// NewConfiguration reads and validates the given configuration file.
// Errors are logged and will result in program termination, causing the
// configuration to be mandatory.
func NewConfiguration(path string) (cfg Configuration) {
	configBytes, err := os.ReadFile(path)
	if err != nil {
		logg.Fatal("read configuration file: %s", err.Error())
	}
	err = yaml.UnmarshalStrict(configBytes, &cfg)
	if err != nil {
		logg.Fatal("parse configuration: %s", err.Error())
	}
	errs := cfg.validate()
	for _, err := range errs {
		logg.Error(err.Error())
	}
	if !errs.IsEmpty() {
		logg.Fatal("cannot proceed with invalid configuration")
	}
	return cfg
}

func (cfg *Configuration) validate() (errs errext.ErrorSet) {
	// apply defaults
	if cfg.Clustering.ModelDir == "" {
		cfg.Clustering.ModelDir = osext.GetenvOrDefault("PLANTGEN_MODEL_DIR", "/var/lib/plantgen")
	}
	if cfg.Clustering.ModelVersion == "" {
		cfg.Clustering.ModelVersion = "v1"
	}
	if cfg.Clustering.MinClusters == 0 {
		cfg.Clustering.MinClusters = 2
	}
	if cfg.Clustering.MaxClusters == 0 {
		cfg.Clustering.MaxClusters = 10
	}
	if cfg.Clustering.Method == "" {
		cfg.Clustering.Method = "silhouette"
	}
	if cfg.Schedule.RetrainDayOfMonth == 0 {
		cfg.Schedule.RetrainDayOfMonth = 1
	}
	if cfg.Schedule.BroadcastWeekday == nil {
		monday := int(time.Monday)
		cfg.Schedule.BroadcastWeekday = &monday
	}

	// validate
	if cfg.Clustering.MinClusters < 2 {
		errs.Addf("clustering.min_clusters must be at least 2")
	}
	if cfg.Clustering.MaxClusters < cfg.Clustering.MinClusters {
		errs.Addf("clustering.max_clusters must not be smaller than min_clusters")
	}
	switch cfg.Clustering.Method {
	case "silhouette", "elbow":
	default:
		errs.Addf("clustering.optimal_cluster_method must be %q or %q, got %q", "silhouette", "elbow", cfg.Clustering.Method)
	}
	if d := cfg.Schedule.RetrainDayOfMonth; d < 1 || d > 28 {
		errs.Addf("schedule.retrain_day_of_month must be between 1 and 28, got %d", d)
	}
	if h := cfg.Schedule.RetrainHour; h < 0 || h > 23 {
		errs.Addf("schedule.retrain_hour must be between 0 and 23, got %d", h)
	}
	if d := *cfg.Schedule.BroadcastWeekday; d < 0 || d > 6 {
		errs.Addf("schedule.broadcast_weekday must be between 0 and 6, got %d", d)
	}
	if h := cfg.Schedule.BroadcastHour; h < 0 || h > 23 {
		errs.Addf("schedule.broadcast_hour must be between 0 and 23, got %d", h)
	}
	if fi, err := os.Stat(cfg.Clustering.ModelDir); err == nil && !fi.IsDir() {
		errs.Addf("clustering.model_dir %q is not a directory", cfg.Clustering.ModelDir)
	}
	return errs
}

// String implements the fmt.Stringer interface for log output.
func (cfg ClusteringConfiguration) String() string {
	return fmt.Sprintf("k in [%d,%d] by %s, models in %s", cfg.MinClusters, cfg.MaxClusters, cfg.Method, cfg.ModelDir)
}
