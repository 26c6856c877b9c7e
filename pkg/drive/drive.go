// Package drive implements the storage and hierarchy engine: the folder
// tree of every owner, the trash lifecycle of its nodes, quota-bounded
// uploads and the read path for canonical bytes and image variants.
//
// The engine composes plain CRUD calls on a metadata.Store. Every operation
// validates by reading and then writes, without per-node locking: two
// concurrent moves of the same node both succeed and the last write decides
// the final parent.
package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/quota"
	"github.com/marmos91/dittodrive/pkg/variant"
)

const (
	// DefaultMaxDepth bounds every ancestor walk.
	DefaultMaxDepth = 1024

	// DefaultMaxFileSize is the per-upload cap: 1 GiB.
	DefaultMaxFileSize int64 = 1 << 30

	// DefaultDownloadKeyTTL is how long a minted download key stays valid.
	DefaultDownloadKeyTTL = 5 * time.Minute

	// DefaultPurgeConcurrency bounds concurrent blob deletions on purge.
	DefaultPurgeConcurrency = 8
)

// Config tunes a Drive. Zero values select the defaults.
type Config struct {
	// MaxDepth is the deepest parent chain accepted before the hierarchy is
	// reported as corrupt
	MaxDepth int

	// MaxFileSize caps a single upload in bytes
	MaxFileSize int64

	// DownloadKeyTTL is the lifetime of download keys
	DownloadKeyTTL time.Duration

	// PurgeConcurrency bounds parallel content deletions
	PurgeConcurrency int

	// Now overrides the clock, for tests
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.DownloadKeyTTL <= 0 {
		c.DownloadKeyTTL = DefaultDownloadKeyTTL
	}
	if c.PurgeConcurrency <= 0 {
		c.PurgeConcurrency = DefaultPurgeConcurrency
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Drive is the engine. It is safe for concurrent use as long as its stores
// are.
type Drive struct {
	store    metadata.Store
	blobs    content.ContentStore
	variants *variant.Cache
	quota    *quota.Accountant
	cfg      Config
	metrics  Metrics
}

// New creates a Drive.
//
// Parameters:
//   - store: Node records
//   - blobs: Canonical file content, addressed by File.ContentID
//   - variants: Cache of resized renditions
//   - accountant: Quota lookups for uploads
//   - cfg: Limits and clock
//   - metrics: Optional metrics sink (nil = no-op)
//
// Returns:
//   - *Drive: Ready engine
//   - error: If a required collaborator is missing
func New(
	store metadata.Store,
	blobs content.ContentStore,
	variants *variant.Cache,
	accountant *quota.Accountant,
	cfg Config,
	metrics Metrics,
) (*Drive, error) {
	switch {
	case store == nil:
		return nil, fmt.Errorf("drive requires a metadata store")
	case blobs == nil:
		return nil, fmt.Errorf("drive requires a content store")
	case variants == nil:
		return nil, fmt.Errorf("drive requires a variant cache")
	case accountant == nil:
		return nil, fmt.Errorf("drive requires a quota accountant")
	}

	cfg.applyDefaults()
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Drive{
		store:    store,
		blobs:    blobs,
		variants: variants,
		quota:    accountant,
		cfg:      cfg,
		metrics:  metrics,
	}, nil
}

// Usage returns the owner's quota position.
func (d *Drive) Usage(ctx context.Context, owner uuid.UUID) (*quota.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.quota.Snapshot(ctx, owner)
}

func (d *Drive) now() time.Time {
	return d.cfg.Now().UTC()
}

// observe reports one public operation. Use as
// defer d.observe(op, time.Now(), &err).
func (d *Drive) observe(op string, start time.Time, err *error) {
	d.metrics.ObserveOperation(op, time.Since(start), *err)
}
