package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/gc"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/quota"
	"github.com/marmos91/dittodrive/pkg/variant"
)

// Runtime holds every component built from a Config.
type Runtime struct {
	Metadata   metadata.Store
	Content    content.ContentStore
	Cache      content.ContentStore
	Plans      *quota.StaticPlans
	Accountant *quota.Accountant
	Variants   *variant.Cache
	Drive      *drive.Drive
	Collector  *gc.Collector
	Metrics    *MetricsResult
}

// InitializeRuntime creates a fully wired Runtime from the provided configuration.
//
// This function orchestrates the complete initialization process:
//  1. Opens the metadata store
//  2. Creates the content and cache stores
//  3. Builds plans, the quota accountant and the variant cache
//  4. Wires the drive and the reconciler
//
// Metrics must already be initialized (see InitializeMetrics); pass an
// empty MetricsResult to run without them.
//
// On failure every component created so far is released.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	rt, err := config.InitializeRuntime(ctx, cfg, config.InitializeMetrics(&cfg.Metrics))
//	if err != nil {
//	    log.Fatalf("Failed to initialize: %v", err)
//	}
//	defer rt.Close()
func InitializeRuntime(ctx context.Context, cfg *Config, m *MetricsResult) (_ *Runtime, err error) {
	logger.Debug("Initializing runtime from configuration")

	if m == nil {
		m = &MetricsResult{}
	}
	rt := &Runtime{Metrics: m}

	// ========================================================================
	// Step 1: Stores
	// ========================================================================

	rt.Metadata, err = CreateMetadataStore(ctx, &cfg.Metadata)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	if rt.Content, err = CreateContentStore(ctx, &cfg.Storage.Content); err != nil {
		return nil, err
	}
	if rt.Cache, err = CreateCacheStore(ctx, &cfg.Storage.Cache); err != nil {
		return nil, err
	}
	logger.Debug("Stores ready: metadata=%s content=%s cache=%s",
		cfg.Metadata.Type, cfg.Storage.Content.Type, cfg.Storage.Cache.Type)

	// ========================================================================
	// Step 2: Quota and variants
	// ========================================================================

	if rt.Plans, err = CreatePlanProvider(&cfg.Users); err != nil {
		return nil, err
	}
	if rt.Accountant, err = CreateAccountant(rt.Metadata, rt.Plans, &cfg.Users); err != nil {
		return nil, err
	}
	if rt.Variants, err = CreateVariantCache(rt.Cache, cfg, m.Variant); err != nil {
		return nil, fmt.Errorf("failed to create variant cache: %w", err)
	}

	// ========================================================================
	// Step 3: Drive and reconciler
	// ========================================================================

	if rt.Drive, err = CreateDrive(cfg, rt.Metadata, rt.Content, rt.Variants, rt.Accountant, m.Drive); err != nil {
		return nil, fmt.Errorf("failed to create drive: %w", err)
	}
	if rt.Collector, err = CreateCollector(&cfg.Reconcile, rt.Metadata, rt.Content, rt.Cache); err != nil {
		return nil, fmt.Errorf("failed to create reconciler: %w", err)
	}

	logger.Info("Runtime initialized: %d plan(s), %d assignment(s)",
		len(cfg.Users.Plans), len(cfg.Users.Assignments))

	return rt, nil
}

// Close releases the metadata store. Content stores hold no resources.
func (r *Runtime) Close() error {
	if r.Metadata == nil {
		return nil
	}
	return r.Metadata.Close()
}
