package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/gc"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/quota"
	"github.com/marmos91/dittodrive/pkg/variant"
)

// CreatePlanProvider builds the plan catalogue and owner assignments from
// the users section.
func CreatePlanProvider(cfg *UsersConfig) (*quota.StaticPlans, error) {
	plans := make([]quota.Plan, 0, len(cfg.Plans))
	for i, p := range cfg.Plans {
		bytes, err := ParseSize(p.Quota)
		if err != nil {
			return nil, fmt.Errorf("users.plans[%d].quota: %w", i, err)
		}
		name := p.Name
		if name == "" {
			name = p.ID
		}
		plans = append(plans, quota.Plan{ID: p.ID, Name: name, QuotaBytes: bytes})
	}

	assignments := make(map[uuid.UUID]quota.Assignment, len(cfg.Assignments))
	for i, a := range cfg.Assignments {
		owner, err := uuid.Parse(a.Owner)
		if err != nil {
			return nil, fmt.Errorf("users.assignments[%d].owner: %w", i, err)
		}

		assignment := quota.Assignment{PlanID: a.Plan}
		if a.ExpiresAt != "" {
			expires, err := time.Parse(time.RFC3339, a.ExpiresAt)
			if err != nil {
				return nil, fmt.Errorf("users.assignments[%d].expires_at: %w", i, err)
			}
			assignment.ExpiresAt = &expires
		}
		assignments[owner] = assignment
	}

	provider, err := quota.NewStaticPlans(plans, assignments)
	if err != nil {
		return nil, fmt.Errorf("invalid plan configuration: %w", err)
	}
	return provider, nil
}

// CreateAccountant creates the quota accountant over the metadata store.
func CreateAccountant(store metadata.Store, plans quota.PlanProvider, cfg *UsersConfig) (*quota.Accountant, error) {
	free, err := ParseSize(cfg.FreeQuota)
	if err != nil {
		return nil, fmt.Errorf("users.free_quota: %w", err)
	}
	return quota.NewAccountant(store, plans, quota.Config{FreeQuota: free}), nil
}

// CreateVariantCache creates the variant cache over the cache store.
func CreateVariantCache(store content.ContentStore, cfg *Config, metrics variant.Metrics) (*variant.Cache, error) {
	return variant.NewCache(store, variant.Config{
		Filter:    cfg.Storage.ImageFilter,
		RateLimit: cfg.Variant.RateLimit,
		Burst:     cfg.Variant.Burst,
	}, metrics)
}

// CreateDrive wires the drive engine from its collaborators.
func CreateDrive(
	cfg *Config,
	store metadata.Store,
	blobs content.ContentStore,
	variants *variant.Cache,
	accountant *quota.Accountant,
	metrics drive.Metrics,
) (*drive.Drive, error) {
	maxFileSize, err := ParseSize(cfg.Storage.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("storage.max_file_size: %w", err)
	}

	return drive.New(store, blobs, variants, accountant, drive.Config{
		MaxDepth:         cfg.Hierarchy.MaxDepth,
		MaxFileSize:      maxFileSize,
		DownloadKeyTTL:   cfg.Users.DownloadKeyTTL,
		PurgeConcurrency: cfg.Hierarchy.PurgeConcurrency,
	}, metrics)
}

// CreateCollector creates the reconciler for the content and cache stores.
func CreateCollector(cfg *ReconcileConfig, store metadata.Store, blobs, cache content.ContentStore) (*gc.Collector, error) {
	return gc.NewCollector(store, blobs, cache, cfg.gcConfig())
}
