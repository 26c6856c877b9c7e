package config

import (
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/marmos91/dittodrive/pkg/variant"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Drive is nil when disabled, which selects the drive's no-op sink
	Drive drive.Metrics

	// Variant is nil when disabled, which selects the cache's no-op sink
	Variant variant.Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled, every field is nil.
//
// Collectors register on a process-wide registry, so call this once per
// process.
func InitializeMetrics(cfg *MetricsConfig) *MetricsResult {
	if !cfg.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server:  metrics.NewServer(metrics.ServerConfig{Port: cfg.Port}),
		Drive:   metrics.NewDriveMetrics(),
		Variant: metrics.NewVariantMetrics(),
	}
}
