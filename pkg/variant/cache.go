package variant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/ratelimiter"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// Source describes the canonical image a variant is derived from. Load is
// only called on a cache miss.
type Source struct {
	FileID    uuid.UUID
	MediaType string
	Load      func(ctx context.Context) ([]byte, error)
}

// Config configures a Cache.
type Config struct {
	// Filter is the resampling filter name (see FilterNames)
	Filter string

	// RateLimit caps renders per second; 0 disables the limit
	RateLimit uint

	// Burst is the number of renders allowed back to back
	Burst uint
}

// Cache is a cache-aside store of rendered variants.
//
// Concurrent misses for the same key may render twice. Both renders produce
// identical bytes and the store's writes are atomic, so the duplicate write
// is a harmless overwrite and no per-key locking is needed.
type Cache struct {
	store   content.ContentStore
	filter  imaging.ResampleFilter
	limiter *ratelimiter.Limiter
	metrics Metrics
}

// NewCache creates a cache over store.
//
// Parameters:
//   - store: Blob store holding rendered variants
//   - cfg: Filter and render throttling
//   - metrics: Optional metrics sink (nil = no-op)
//
// Returns:
//   - *Cache: Ready cache
//   - error: If the filter name is unknown
func NewCache(store content.ContentStore, cfg Config, metrics Metrics) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("variant cache requires a content store")
	}

	filter, err := ParseFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}

	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Cache{
		store:   store,
		filter:  filter,
		limiter: ratelimiter.New(cfg.RateLimit, cfg.Burst),
		metrics: metrics,
	}, nil
}

// Get returns the variant of src described by key, rendering and storing it
// on a miss.
//
// Errors from src.Load are returned unchanged so callers can tell a missing
// canonical blob (content.ErrContentNotFound) from a render failure. A
// failure to persist the rendered bytes is logged and the bytes are still
// returned.
func (c *Cache) Get(ctx context.Context, src Source, key Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	key.FileID = src.FileID
	id := key.ContentID(metadata.ExtensionFor(src.MediaType))

	// ========================================================================
	// Step 1: Serve from the cache
	// ========================================================================

	data, err := content.ReadAll(ctx, c.store, id)
	if err == nil {
		c.metrics.RecordHit()
		return data, nil
	}
	if !errors.Is(err, content.ErrContentNotFound) {
		logger.Warn("Variant cache read failed for %s, rendering: %v", id, err)
	}
	c.metrics.RecordMiss()

	// ========================================================================
	// Step 2: Render from the canonical bytes
	// ========================================================================

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("variant render throttled: %w", err)
	}

	canonical, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	data, err = Render(canonical, src.MediaType, key, c.filter)
	c.metrics.ObserveRender(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", key, err)
	}

	// ========================================================================
	// Step 3: Memoize
	// ========================================================================

	if err := c.store.WriteContent(ctx, id, data); err != nil {
		logger.Warn("Failed to store variant %s: %v", id, err)
	} else {
		logger.Debug("Variant rendered: id=%s bytes=%d duration=%s", id, len(data), time.Since(start))
	}

	return data, nil
}

// Invalidate removes the given renditions of fileID. Failures are logged.
func (c *Cache) Invalidate(ctx context.Context, fileID uuid.UUID, ext string, keys ...Key) {
	for _, k := range keys {
		k.FileID = fileID
		id := k.ContentID(ext)
		if err := c.store.Delete(ctx, id); err != nil {
			logger.Warn("Failed to delete variant %s: %v", id, err)
		}
	}
}

// Purge removes every cached rendition of fileID.
//
// It needs a listable store to discover which sizes were ever requested;
// other stores return content.ErrNotSupported.
//
// Returns:
//   - int: Number of variants removed
//   - error: Listing failure or the first deletion failure
func (c *Cache) Purge(ctx context.Context, fileID uuid.UUID) (int, error) {
	listable, ok := c.store.(content.ListableStore)
	if !ok {
		return 0, content.ErrNotSupported
	}

	ids, err := content.ListWithPrefix(ctx, listable, Prefix(fileID))
	if err != nil {
		return 0, fmt.Errorf("failed to list variants of %s: %w", fileID, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	failures, err := listable.DeleteBatch(ctx, ids)
	if err != nil {
		return len(ids) - len(failures), err
	}

	removed := len(ids) - len(failures)
	c.metrics.RecordPurged(removed)

	for id, ferr := range failures {
		return removed, fmt.Errorf("failed to delete variant %s: %w", id, ferr)
	}
	return removed, nil
}
