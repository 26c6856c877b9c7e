package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/spf13/viper"
)

// Config represents the complete DittoDrive configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTODRIVE_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each backend section carries a Type plus one map per implementation
// (e.g. storage.content.filesystem, storage.content.s3). Only the map that
// matches Type is decoded, by the factory for that backend.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Metadata  MetadataConfig  `mapstructure:"metadata" yaml:"metadata"`
	Users     UsersConfig     `mapstructure:"users" yaml:"users"`
	Hierarchy HierarchyConfig `mapstructure:"hierarchy" yaml:"hierarchy"`
	Variant   VariantConfig   `mapstructure:"variant" yaml:"variant"`
	Reconcile ReconcileConfig `mapstructure:"reconcile" yaml:"reconcile"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains process-wide settings for the serve command.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`
}

// StorageConfig selects the blob backends and upload limits.
type StorageConfig struct {
	// Content holds canonical file bytes
	Content BackendConfig `mapstructure:"content" yaml:"content"`

	// Cache holds rendered image variants; it can be wiped at any time
	Cache BackendConfig `mapstructure:"cache" yaml:"cache"`

	// MaxFileSize bounds a single upload, e.g. "1GiB"
	MaxFileSize string `mapstructure:"max_file_size" yaml:"max_file_size" validate:"required"`

	// ImageFilter is the resampling filter used for variants
	// Valid values: catmullrom, lanczos, linear, box, nearest
	ImageFilter string `mapstructure:"image_filter" yaml:"image_filter" validate:"required,oneof=catmullrom lanczos linear box nearest"`
}

// BackendConfig specifies a content store.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type BackendConfig struct {
	// Type specifies which content store implementation to use
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem: {path}
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// Memory: {max_size}
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// S3: {region, bucket, key_prefix, endpoint, access_key_id, secret_access_key, max_retries}
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`
}

// MetadataConfig specifies the node record store.
type MetadataConfig struct {
	// Type specifies which metadata store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// Badger: {db_path, block_cache_mb, index_cache_mb}
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`
}

// UsersConfig holds per-owner allowances.
type UsersConfig struct {
	// FreeQuota is the allowance without an active plan, e.g. "5GiB"
	FreeQuota string `mapstructure:"free_quota" yaml:"free_quota" validate:"required"`

	// DownloadKeyTTL is how long a download key stays valid
	DownloadKeyTTL time.Duration `mapstructure:"download_key_ttl" yaml:"download_key_ttl" validate:"gt=0"`

	// Plans is the billing plan catalogue
	Plans []PlanConfig `mapstructure:"plans" yaml:"plans" validate:"dive"`

	// Assignments binds owners to plans
	Assignments []AssignmentConfig `mapstructure:"assignments" yaml:"assignments" validate:"dive"`
}

// PlanConfig is one entry of the plan catalogue.
type PlanConfig struct {
	ID    string `mapstructure:"id" yaml:"id" validate:"required"`
	Name  string `mapstructure:"name" yaml:"name"`
	Quota string `mapstructure:"quota" yaml:"quota" validate:"required"`
}

// AssignmentConfig puts an owner on a plan, optionally until ExpiresAt
// (RFC 3339).
type AssignmentConfig struct {
	Owner     string `mapstructure:"owner" yaml:"owner" validate:"required,uuid"`
	Plan      string `mapstructure:"plan" yaml:"plan" validate:"required"`
	ExpiresAt string `mapstructure:"expires_at" yaml:"expires_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// HierarchyConfig bounds tree walks and purge fan-out.
type HierarchyConfig struct {
	// MaxDepth caps ancestor walks; deeper chains are reported as corrupt
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth" validate:"gte=1"`

	// PurgeConcurrency is the number of parallel blob deletions on purge
	PurgeConcurrency int `mapstructure:"purge_concurrency" yaml:"purge_concurrency" validate:"gte=1"`
}

// VariantConfig throttles variant rendering.
type VariantConfig struct {
	// RateLimit is renders per second (0 = unlimited)
	RateLimit uint `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Burst is the number of renders allowed back to back
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// ReconcileConfig configures the background reconciler.
type ReconcileConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval  time.Duration `mapstructure:"interval" yaml:"interval" validate:"gt=0"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size" validate:"gte=1,lte=1000"`
	DryRun    bool          `mapstructure:"dry_run" yaml:"dry_run"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port" validate:"gte=1,lte=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTODRIVE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: DITTODRIVE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTODRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/dittodrive/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is treated like a missing
		// default file.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittodrive")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittodrive")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}

// ConfigureLogging applies the logging section to the process logger.
func ConfigureLogging(cfg *LoggingConfig) error {
	logger.SetLevel(cfg.Level)
	logger.SetFormat(cfg.Format)
	if err := logger.SetOutput(cfg.Output); err != nil {
		return fmt.Errorf("failed to configure log output: %w", err)
	}
	return nil
}
