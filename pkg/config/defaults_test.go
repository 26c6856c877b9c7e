package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Empty(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" || cfg.Logging.Format != "text" || cfg.Logging.Output != "stdout" {
		t.Errorf("Unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Storage.Content.Type != "filesystem" || cfg.Storage.Cache.Type != "filesystem" {
		t.Errorf("Expected filesystem backends, got %q and %q", cfg.Storage.Content.Type, cfg.Storage.Cache.Type)
	}
	if cfg.Storage.Content.Filesystem["path"] == cfg.Storage.Cache.Filesystem["path"] {
		t.Error("Content and cache must default to different directories")
	}
	if cfg.Users.FreeQuota != "5GiB" {
		t.Errorf("Expected free quota '5GiB', got %q", cfg.Users.FreeQuota)
	}
	if cfg.Hierarchy.PurgeConcurrency != 8 {
		t.Errorf("Expected purge concurrency 8, got %d", cfg.Hierarchy.PurgeConcurrency)
	}
	if cfg.Reconcile.Interval != 24*time.Hour || cfg.Reconcile.BatchSize != 1000 {
		t.Errorf("Unexpected reconcile defaults: %+v", cfg.Reconcile)
	}
	if cfg.Reconcile.Enabled {
		t.Error("Reconciler must be opt-in")
	}
	if cfg.Metrics.Enabled || cfg.Metrics.Port != 9090 {
		t.Errorf("Unexpected metrics defaults: %+v", cfg.Metrics)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "warn", Format: "json", Output: "stderr"},
		Storage: StorageConfig{
			Content: BackendConfig{
				Type:       "filesystem",
				Filesystem: map[string]any{"path": "/data/files"},
			},
			MaxFileSize: "10MiB",
		},
		Hierarchy: HierarchyConfig{MaxDepth: 32},
		Users:     UsersConfig{DownloadKeyTTL: time.Minute},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected normalized level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Output != "stderr" {
		t.Errorf("Explicit logging values were overwritten: %+v", cfg.Logging)
	}
	if cfg.Storage.Content.Filesystem["path"] != "/data/files" {
		t.Errorf("Explicit path was overwritten: %v", cfg.Storage.Content.Filesystem["path"])
	}
	if cfg.Storage.MaxFileSize != "10MiB" {
		t.Errorf("Explicit max_file_size was overwritten: %q", cfg.Storage.MaxFileSize)
	}
	if cfg.Hierarchy.MaxDepth != 32 {
		t.Errorf("Explicit max_depth was overwritten: %d", cfg.Hierarchy.MaxDepth)
	}
	if cfg.Users.DownloadKeyTTL != time.Minute {
		t.Errorf("Explicit download_key_ttl was overwritten: %v", cfg.Users.DownloadKeyTTL)
	}
}

func TestApplyDefaults_S3Prefixes(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{
			Content: BackendConfig{Type: "s3", S3: map[string]any{"bucket": "drive"}},
			Cache:   BackendConfig{Type: "s3", S3: map[string]any{"bucket": "drive"}},
		},
	}
	ApplyDefaults(cfg)

	if cfg.Storage.Content.S3["key_prefix"] != "files/" {
		t.Errorf("Expected content prefix 'files/', got %v", cfg.Storage.Content.S3["key_prefix"])
	}
	if cfg.Storage.Cache.S3["key_prefix"] != "cache/" {
		t.Errorf("Expected cache prefix 'cache/', got %v", cfg.Storage.Cache.S3["key_prefix"])
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Default config must validate, got: %v", err)
	}
}

func TestReconcileConfig_GCConfig(t *testing.T) {
	rc := ReconcileConfig{Enabled: true, Interval: time.Hour, BatchSize: 10, DryRun: true}
	got := rc.gcConfig()

	if !got.Enabled || got.Interval != time.Hour || got.BatchSize != 10 || !got.DryRun {
		t.Errorf("Unexpected gc config: %+v", got)
	}
}
