package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/gc"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend maps only get defaults for keys they do not set
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applyMetadataDefaults(&cfg.Metadata)
	applyUsersDefaults(&cfg.Users)
	applyHierarchyDefaults(&cfg.Hierarchy)
	applyReconcileDefaults(&cfg.Reconcile)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	applyBackendDefaults(&cfg.Content, "files")
	applyBackendDefaults(&cfg.Cache, "cache")

	if cfg.MaxFileSize == "" {
		cfg.MaxFileSize = "1GiB"
	}
	if cfg.ImageFilter == "" {
		cfg.ImageFilter = "catmullrom"
	}
	cfg.ImageFilter = strings.ToLower(cfg.ImageFilter)
}

// applyBackendDefaults fills a content backend. role names the directory
// (filesystem) or key prefix (s3) so canonical blobs and variants never
// share a namespace.
func applyBackendDefaults(cfg *BackendConfig, role string) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = filepath.Join("/tmp/dittodrive", role)
	}

	if cfg.Type == "s3" {
		if cfg.S3 == nil {
			cfg.S3 = make(map[string]any)
		}
		if _, ok := cfg.S3["key_prefix"]; !ok {
			cfg.S3["key_prefix"] = role + "/"
		}
	}
}

func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/dittodrive/metadata"
	}
}

func applyUsersDefaults(cfg *UsersConfig) {
	if cfg.FreeQuota == "" {
		cfg.FreeQuota = "5GiB"
	}
	if cfg.DownloadKeyTTL == 0 {
		cfg.DownloadKeyTTL = drive.DefaultDownloadKeyTTL
	}
	if cfg.Plans == nil {
		cfg.Plans = []PlanConfig{}
	}
	if cfg.Assignments == nil {
		cfg.Assignments = []AssignmentConfig{}
	}
}

func applyHierarchyDefaults(cfg *HierarchyConfig) {
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = drive.DefaultMaxDepth
	}
	if cfg.PurgeConcurrency == 0 {
		cfg.PurgeConcurrency = drive.DefaultPurgeConcurrency
	}
}

func applyReconcileDefaults(cfg *ReconcileConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1000
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// gcConfig converts the reconcile section for the reconciler.
func (c *ReconcileConfig) gcConfig() gc.Config {
	return gc.Config{
		Enabled:   c.Enabled,
		Interval:  c.Interval,
		BatchSize: c.BatchSize,
		DryRun:    c.DryRun,
	}
}
