package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "info"

storage:
  content:
    type: "memory"
  cache:
    type: "memory"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Storage.MaxFileSize != "1GiB" {
		t.Errorf("Expected default max_file_size '1GiB', got %q", cfg.Storage.MaxFileSize)
	}
	if cfg.Users.DownloadKeyTTL != 5*time.Minute {
		t.Errorf("Expected default download_key_ttl 5m, got %v", cfg.Users.DownloadKeyTTL)
	}
	if cfg.Hierarchy.MaxDepth != 1024 {
		t.Errorf("Expected default max_depth 1024, got %d", cfg.Hierarchy.MaxDepth)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
storage:
  content:
    type: filesystem
    filesystem:
      path: /srv/drive/files
  max_file_size: 256MiB
  image_filter: Lanczos
metadata:
  type: badger
  badger:
    db_path: /srv/drive/meta
users:
  free_quota: 2GiB
  download_key_ttl: 90s
  plans:
    - id: pro
      name: Pro
      quota: 100GiB
  assignments:
    - owner: 6f1c7c64-2a52-4d8e-9a49-0c7c3c1f9a11
      plan: pro
      expires_at: "2030-01-01T00:00:00Z"
reconcile:
  enabled: true
  interval: 6h
  batch_size: 250
variant:
  rate_limit: 20
  burst: 5
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.Storage.Content.Filesystem["path"]; got != "/srv/drive/files" {
		t.Errorf("Expected content path '/srv/drive/files', got %v", got)
	}
	if cfg.Storage.ImageFilter != "lanczos" {
		t.Errorf("Expected normalized filter 'lanczos', got %q", cfg.Storage.ImageFilter)
	}
	if cfg.Users.DownloadKeyTTL != 90*time.Second {
		t.Errorf("Expected download_key_ttl 90s, got %v", cfg.Users.DownloadKeyTTL)
	}
	if len(cfg.Users.Plans) != 1 || cfg.Users.Plans[0].Quota != "100GiB" {
		t.Errorf("Expected one plan with quota 100GiB, got %+v", cfg.Users.Plans)
	}
	if len(cfg.Users.Assignments) != 1 || cfg.Users.Assignments[0].Plan != "pro" {
		t.Errorf("Expected one assignment to 'pro', got %+v", cfg.Users.Assignments)
	}
	if !cfg.Reconcile.Enabled || cfg.Reconcile.Interval != 6*time.Hour || cfg.Reconcile.BatchSize != 250 {
		t.Errorf("Unexpected reconcile section: %+v", cfg.Reconcile)
	}
	if cfg.Variant.RateLimit != 20 || cfg.Variant.Burst != 5 {
		t.Errorf("Unexpected variant section: %+v", cfg.Variant)
	}
	// The cache section was omitted and keeps its own directory
	if got := cfg.Storage.Cache.Filesystem["path"]; got != "/tmp/dittodrive/cache" {
		t.Errorf("Expected default cache path, got %v", got)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Storage.Content.Type != "filesystem" {
		t.Errorf("Expected default content type 'filesystem', got %q", cfg.Storage.Content.Type)
	}
	if cfg.Metadata.Type != "memory" {
		t.Errorf("Expected default metadata type 'memory', got %q", cfg.Metadata.Type)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
storage:
  max_file_size: "lots"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unparsable size")
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: INFO
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("DITTODRIVE_LOGGING_LEVEL", "DEBUG")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected env override 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	if got := GetConfigDir(); got != filepath.Join("/custom/config", "dittodrive") {
		t.Errorf("Expected XDG-based dir, got %q", got)
	}
	if got := GetDefaultConfigPath(); got != filepath.Join("/custom/config", "dittodrive", "config.yaml") {
		t.Errorf("Expected XDG-based path, got %q", got)
	}
}

func TestConfigureLogging(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Output = filepath.Join(t.TempDir(), "drive.log")
	t.Cleanup(func() {
		_ = ConfigureLogging(&GetDefaultConfig().Logging)
	})

	if err := ConfigureLogging(&cfg.Logging); err != nil {
		t.Fatalf("ConfigureLogging failed: %v", err)
	}
	if _, err := os.Stat(cfg.Logging.Output); err != nil {
		t.Errorf("Expected log file to be created: %v", err)
	}
}
