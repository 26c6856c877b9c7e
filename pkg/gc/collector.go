// Package gc reconciles drive records with the bytes in the content stores.
//
// Uploads persist the file record before the blob and purges delete records
// before blobs, so an interrupted operation leaves one side dangling:
//   - Orphaned blobs: content (or cached variants) with no file record.
//     These are deleted in batches.
//   - Orphaned records: file records whose canonical blob is missing.
//     These are only reported; the owner decides whether to purge them.
package gc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// Collector performs periodic reconciliation between the metadata store and
// the content stores.
//
// Thread Safety: Safe for concurrent use. A RunNow racing the worker simply
// repeats the scan.
type Collector struct {
	metadataStore metadata.Store
	contentStore  content.ListableStore
	variantStore  content.ListableStore
	config        Config
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// Config contains configuration for the reconciler.
type Config struct {
	// Enabled controls whether the background worker runs (default: false)
	Enabled bool

	// Interval is how often to run reconciliation (default: 24h)
	Interval time.Duration

	// BatchSize is how many orphaned blobs to delete per batch (default: 1000)
	// S3 supports up to 1000 objects per DeleteObjects call
	BatchSize int

	// DryRun logs what would be deleted without deleting anything
	DryRun bool
}

// NewCollector creates a reconciler. The variant store is optional.
//
// Returns an error if a content store cannot enumerate its blobs.
func NewCollector(
	metadataStore metadata.Store,
	contentStore content.ContentStore,
	variantStore content.ContentStore,
	config Config,
) (*Collector, error) {
	if metadataStore == nil {
		return nil, fmt.Errorf("metadata store is required")
	}

	listable, ok := contentStore.(content.ListableStore)
	if !ok {
		return nil, fmt.Errorf("content store does not implement ListableStore interface")
	}

	var variants content.ListableStore
	if variantStore != nil {
		variants, ok = variantStore.(content.ListableStore)
		if !ok {
			return nil, fmt.Errorf("variant store does not implement ListableStore interface")
		}
	}

	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}

	return &Collector{
		metadataStore: metadataStore,
		contentStore:  listable,
		variantStore:  variants,
		config:        config,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}, nil
}

// Start begins background reconciliation. No-op when disabled.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Reconciliation disabled")
		return
	}

	logger.Info("Starting reconciler: interval=%s batch_size=%d dry_run=%v",
		c.config.Interval, c.config.BatchSize, c.config.DryRun)

	go c.worker()
}

// Stop signals the worker and waits for an in-progress run to finish.
//
// Returns ctx.Err() if the context expires first.
func (c *Collector) Stop(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	logger.Info("Stopping reconciler...")

	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}

	select {
	case <-c.doneCh:
		logger.Info("Reconciler stopped successfully")
		return nil
	case <-ctx.Done():
		logger.Warn("Reconciler shutdown timeout")
		return ctx.Err()
	}
}

// RunNow performs one reconciliation pass and blocks until it completes.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("Running reconciliation (manual trigger)...")
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Reconciliation failed: %v", err)
			} else {
				logger.Info("Reconciliation completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect performs a single pass:
//  1. List the canonical content store and the variant store
//  2. Load every file record
//  3. Split orphaned blobs from referenced ones
//  4. Report records whose blob is missing
//  5. Collect variants of unknown files
//  6. Delete orphans in batches (unless DryRun)
//
// Uploads commit the record before writing the blob, so every blob seen in
// step 1 already has its record by step 2. Reading records first would let
// an upload landing between the two reads look orphaned.
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	// ========================================================================
	// Step 1: Stored content
	// ========================================================================

	existing, err := c.contentStore.ListAllContent(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list content: %w", err)
	}
	stats.ExistingCount = uint64(len(existing))

	var cached []metadata.ContentID
	if c.variantStore != nil {
		cached, err = c.variantStore.ListAllContent(ctx)
		if err != nil {
			return stats, fmt.Errorf("failed to list variants: %w", err)
		}
	}

	// ========================================================================
	// Step 2: Referenced content
	// ========================================================================

	files, err := c.metadataStore.ListAllFiles(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list file records: %w", err)
	}
	stats.RecordCount = uint64(len(files))

	referenced := make(map[metadata.ContentID]*metadata.File, len(files))
	knownFiles := make(map[uuid.UUID]struct{}, len(files))
	for _, f := range files {
		referenced[f.ContentID()] = f
		knownFiles[f.ID] = struct{}{}
	}

	// ========================================================================
	// Step 3: Orphaned blobs
	// ========================================================================

	present := make(map[metadata.ContentID]struct{}, len(existing))
	var orphaned []metadata.ContentID
	for _, id := range existing {
		present[id] = struct{}{}
		if _, ok := referenced[id]; !ok {
			orphaned = append(orphaned, id)
		}
	}
	stats.OrphanedCount = uint64(len(orphaned))

	// ========================================================================
	// Step 4: Orphaned records
	// ========================================================================

	// A record committed after step 1 shows up here until its blob lands;
	// it is only reported, never acted on.
	for id, f := range referenced {
		if _, ok := present[id]; !ok {
			stats.MissingContent = append(stats.MissingContent, f.ID)
			logger.Warn("Reconcile: file %s (%q, owner %s) has no content", f.ID, f.Name, f.OwnerID)
		}
	}

	// ========================================================================
	// Step 5: Orphaned variants
	// ========================================================================

	var orphanedVariants []metadata.ContentID
	for _, id := range cached {
		fileID, ok := variantFileID(id)
		if !ok {
			orphanedVariants = append(orphanedVariants, id)
			continue
		}
		if _, known := knownFiles[fileID]; !known {
			orphanedVariants = append(orphanedVariants, id)
		}
	}
	stats.OrphanedVariantCount = uint64(len(orphanedVariants))

	logger.Info("Reconcile: %d records, %d blobs, %d orphaned blobs, %d orphaned variants, %d records without content",
		stats.RecordCount, stats.ExistingCount, stats.OrphanedCount,
		stats.OrphanedVariantCount, len(stats.MissingContent))

	if c.config.DryRun {
		logOrphans("blob", orphaned)
		logOrphans("variant", orphanedVariants)
		return stats, nil
	}

	// ========================================================================
	// Step 6: Delete
	// ========================================================================

	deleted, failed, err := c.deleteBatches(ctx, c.contentStore, orphaned)
	stats.DeletedCount += deleted
	stats.FailedCount += failed
	if err != nil {
		return stats, err
	}

	if c.variantStore != nil {
		deleted, failed, err = c.deleteBatches(ctx, c.variantStore, orphanedVariants)
		stats.DeletedCount += deleted
		stats.FailedCount += failed
		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func (c *Collector) deleteBatches(ctx context.Context, store content.ListableStore, ids []metadata.ContentID) (deleted, failed uint64, err error) {
	for i := 0; i < len(ids); i += c.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return deleted, failed, err
		}

		end := min(i+c.config.BatchSize, len(ids))
		batch := ids[i:end]

		failures, err := store.DeleteBatch(ctx, batch)
		if err != nil {
			logger.Warn("Reconcile: batch delete failed: %v", err)
			failed += uint64(len(batch))
			continue
		}

		deleted += uint64(len(batch) - len(failures))
		failed += uint64(len(failures))

		for id, ferr := range failures {
			logger.Debug("Reconcile: failed to delete %s: %v", id, ferr)
		}
	}
	return deleted, failed, nil
}

// variantFileID extracts the file id from "<file-id>_<w>x<h>[_fill].<ext>".
func variantFileID(id metadata.ContentID) (uuid.UUID, bool) {
	head, _, ok := strings.Cut(string(id), "_")
	if !ok {
		return uuid.Nil, false
	}
	fileID, err := uuid.Parse(head)
	if err != nil {
		return uuid.Nil, false
	}
	return fileID, true
}

func logOrphans(kind string, ids []metadata.ContentID) {
	if len(ids) == 0 {
		return
	}
	logger.Info("Reconcile: DRY RUN - would delete %d %s(s):", len(ids), kind)
	for i, id := range ids {
		if i == 10 {
			logger.Info("  ... and %d more", len(ids)-10)
			break
		}
		logger.Info("  - %s", id)
	}
}

// Stats contains statistics from a reconciliation run.
type Stats struct {
	StartTime            time.Time
	EndTime              time.Time
	RecordCount          uint64      // file records scanned
	ExistingCount        uint64      // blobs in the content store
	OrphanedCount        uint64      // blobs without a record
	OrphanedVariantCount uint64      // cached variants of unknown files
	DeletedCount         uint64      // orphans removed
	FailedCount          uint64      // orphans that could not be removed
	MissingContent       []uuid.UUID // records whose blob is missing
}

// Duration returns the total run duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the run.
func (s *Stats) Summary() string {
	return fmt.Sprintf("records=%d blobs=%d orphaned=%d orphaned_variants=%d missing_content=%d deleted=%d failed=%d duration=%s",
		s.RecordCount, s.ExistingCount, s.OrphanedCount, s.OrphanedVariantCount,
		len(s.MissingContent), s.DeletedCount, s.FailedCount, s.Duration())
}
