package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestInitConfig_Success(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", configPath)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	contentStr := string(content)
	expectedSections := []string{
		"# DittoDrive Configuration File",
		"logging:",
		"storage:",
		"metadata:",
		"users:",
		"hierarchy:",
		"reconcile:",
		"metrics:",
	}

	for _, section := range expectedSections {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Config file missing section: %s", section)
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err := InitConfig(false)
	if err == nil {
		t.Fatal("Expected error when config already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}
}

func TestInitConfig_Force(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	if err := os.WriteFile(configPath, []byte("garbage"), 0644); err != nil {
		t.Fatalf("Failed to overwrite config: %v", err)
	}

	if _, err := InitConfig(true); err != nil {
		t.Fatalf("InitConfig with force failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	if strings.Contains(string(content), "garbage") {
		t.Error("Forced init did not replace the file")
	}
}

// The generated file must load back into the same effective configuration.
func TestInitConfigToPath_RoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}

	want := GetDefaultConfig()
	if cfg.Users.DownloadKeyTTL != want.Users.DownloadKeyTTL {
		t.Errorf("download_key_ttl: got %v, want %v", cfg.Users.DownloadKeyTTL, want.Users.DownloadKeyTTL)
	}
	if cfg.Reconcile.Interval != want.Reconcile.Interval {
		t.Errorf("reconcile.interval: got %v, want %v", cfg.Reconcile.Interval, want.Reconcile.Interval)
	}
	if cfg.Storage.MaxFileSize != want.Storage.MaxFileSize {
		t.Errorf("max_file_size: got %q, want %q", cfg.Storage.MaxFileSize, want.Storage.MaxFileSize)
	}
	if cfg.Storage.Cache.Filesystem["path"] != want.Storage.Cache.Filesystem["path"] {
		t.Errorf("cache path: got %v, want %v", cfg.Storage.Cache.Filesystem["path"], want.Storage.Cache.Filesystem["path"])
	}
}
