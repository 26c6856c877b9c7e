// Package quota computes per-owner storage usage against billing plans.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// DefaultFreeQuota is the free-tier allowance: 5 GiB.
const DefaultFreeQuota int64 = 5 << 30

// Snapshot is an owner's quota position at one instant. It is derived on
// demand and never stored.
type Snapshot struct {
	LimitBytes int64
	UsedBytes  int64

	// Plan is the active plan, nil on the free tier
	Plan *Plan
}

// Available is LimitBytes minus UsedBytes. It is negative when an owner is
// over quota, e.g. after a plan downgrade; existing content is kept but new
// uploads are refused.
func (s Snapshot) Available() int64 {
	return s.LimitBytes - s.UsedBytes
}

func (s Snapshot) String() string {
	plan := "free"
	if s.Plan != nil {
		plan = s.Plan.Name
	}
	return fmt.Sprintf("%s of %s used (%s plan)",
		humanize.IBytes(uint64(max(s.UsedBytes, 0))),
		humanize.IBytes(uint64(max(s.LimitBytes, 0))),
		plan)
}

// Config configures an Accountant.
type Config struct {
	// FreeQuota is the allowance without an active plan (default: 5 GiB)
	FreeQuota int64

	// Now overrides the clock, for tests
	Now func() time.Time
}

// Accountant computes used and available space.
//
// Used space is the sum of ByteSize over the owner's non-trashed files.
// Trashed files still occupy storage but are not charged until purged.
type Accountant struct {
	store     metadata.Store
	plans     PlanProvider
	freeQuota int64
	now       func() time.Time
}

// NewAccountant creates an accountant over the metadata store. A nil plans
// provider puts every owner on the free tier.
func NewAccountant(store metadata.Store, plans PlanProvider, cfg Config) *Accountant {
	if cfg.FreeQuota <= 0 {
		cfg.FreeQuota = DefaultFreeQuota
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Accountant{
		store:     store,
		plans:     plans,
		freeQuota: cfg.FreeQuota,
		now:       cfg.Now,
	}
}

// UsedSpace returns the bytes charged to owner.
func (a *Accountant) UsedSpace(ctx context.Context, owner uuid.UUID) (int64, error) {
	files, err := a.store.ListOwnerFiles(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to list files of %s: %w", owner, err)
	}

	var used int64
	for _, f := range files {
		if !f.Trashed() {
			used += f.ByteSize
		}
	}
	return used, nil
}

// activePlan returns the owner's plan if it is active now, else nil.
func (a *Accountant) activePlan(ctx context.Context, owner uuid.UUID) (*Plan, error) {
	if a.plans == nil {
		return nil, nil
	}
	plan, err := a.plans.CurrentPlan(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to look up plan of %s: %w", owner, err)
	}
	if !plan.Active(a.now()) {
		return nil, nil
	}
	return plan, nil
}

// TotalSpace returns the plan quota when a plan is active, else the free
// quota.
func (a *Accountant) TotalSpace(ctx context.Context, owner uuid.UUID) (int64, error) {
	plan, err := a.activePlan(ctx, owner)
	if err != nil {
		return 0, err
	}
	if plan == nil {
		return a.freeQuota, nil
	}
	return plan.QuotaBytes, nil
}

// AvailableSpace returns TotalSpace minus UsedSpace; it may be negative.
func (a *Accountant) AvailableSpace(ctx context.Context, owner uuid.UUID) (int64, error) {
	snap, err := a.Snapshot(ctx, owner)
	if err != nil {
		return 0, err
	}
	return snap.Available(), nil
}

// Snapshot returns limit and usage in one call.
func (a *Accountant) Snapshot(ctx context.Context, owner uuid.UUID) (*Snapshot, error) {
	plan, err := a.activePlan(ctx, owner)
	if err != nil {
		return nil, err
	}
	used, err := a.UsedSpace(ctx, owner)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{LimitBytes: a.freeQuota, UsedBytes: used, Plan: plan}
	if plan != nil {
		snap.LimitBytes = plan.QuotaBytes
	}
	return snap, nil
}

// FreeQuota returns the free-tier allowance.
func (a *Accountant) FreeQuota() int64 {
	return a.freeQuota
}
