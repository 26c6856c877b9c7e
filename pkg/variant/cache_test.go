package variant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/content/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	hits, misses, renders, purged atomic.Int64
}

func (m *countingMetrics) RecordHit()                         { m.hits.Add(1) }
func (m *countingMetrics) RecordMiss()                        { m.misses.Add(1) }
func (m *countingMetrics) ObserveRender(time.Duration, error) { m.renders.Add(1) }
func (m *countingMetrics) RecordPurged(n int)                 { m.purged.Add(int64(n)) }

func newTestCache(t *testing.T) (*Cache, *memory.MemoryContentStore, *countingMetrics) {
	t.Helper()
	store, err := memory.NewMemoryContentStore(context.Background())
	require.NoError(t, err)
	metrics := &countingMetrics{}
	cache, err := NewCache(store, Config{}, metrics)
	require.NoError(t, err)
	return cache, store, metrics
}

func staticSource(id uuid.UUID, data []byte, loads *atomic.Int64) Source {
	return Source{
		FileID:    id,
		MediaType: "image/png",
		Load: func(context.Context) ([]byte, error) {
			if loads != nil {
				loads.Add(1)
			}
			return data, nil
		},
	}
}

func TestCacheGetMissThenHit(t *testing.T) {
	ctx := context.Background()
	cache, store, metrics := newTestCache(t)

	id := uuid.New()
	var loads atomic.Int64
	src := staticSource(id, encodePNG(t, 50, 50), &loads)
	key := Key{Width: 10, Height: 10}

	first, err := cache.Get(ctx, src, key)
	require.NoError(t, err)
	second, err := cache.Get(ctx, src, key)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, loads.Load(), "canonical bytes are loaded once")
	assert.EqualValues(t, 1, metrics.misses.Load())
	assert.EqualValues(t, 1, metrics.hits.Load())

	exists, err := store.ContentExists(ctx, Key{FileID: id, Width: 10, Height: 10}.ContentID("png"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCacheKeyUsesSourceFileID(t *testing.T) {
	ctx := context.Background()
	cache, store, _ := newTestCache(t)

	id := uuid.New()
	_, err := cache.Get(ctx, staticSource(id, encodePNG(t, 8, 8), nil), Key{FileID: uuid.New(), Width: 4, Height: 4, Fill: true})
	require.NoError(t, err)

	ids, err := content.ListWithPrefix(ctx, store, Prefix(id))
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestCacheConcurrentDeterminism(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(t)

	src := staticSource(uuid.New(), encodePNG(t, 300, 180), nil)
	key := Key{Width: 200, Height: 200, Fill: true}

	const workers = 8
	results := make([][]byte, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := cache.Get(ctx, src, key)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = data
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Equal(t, results[0], results[i], "worker %d returned different bytes", i)
	}

	again, err := cache.Get(ctx, src, key)
	require.NoError(t, err)
	assert.Equal(t, results[0], again)
}

func TestCacheLoadErrorPropagates(t *testing.T) {
	cache, _, _ := newTestCache(t)

	src := Source{
		FileID:    uuid.New(),
		MediaType: "image/png",
		Load: func(context.Context) ([]byte, error) {
			return nil, fmt.Errorf("canonical: %w", content.ErrContentNotFound)
		},
	}

	_, err := cache.Get(context.Background(), src, Key{Width: 5, Height: 5})
	assert.True(t, errors.Is(err, content.ErrContentNotFound))
}

func TestCacheRejectsZeroDimensions(t *testing.T) {
	cache, _, _ := newTestCache(t)

	_, err := cache.Get(context.Background(), staticSource(uuid.New(), nil, nil), Key{Width: 0, Height: 5})
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestCachePurgeAndInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, store, metrics := newTestCache(t)

	id, other := uuid.New(), uuid.New()
	data := encodePNG(t, 20, 20)
	for _, k := range []Key{{Width: 5, Height: 5}, {Width: 5, Height: 5, Fill: true}, {Width: 8, Height: 4}} {
		_, err := cache.Get(ctx, staticSource(id, data, nil), k)
		require.NoError(t, err)
	}
	_, err := cache.Get(ctx, staticSource(other, data, nil), Key{Width: 5, Height: 5})
	require.NoError(t, err)

	cache.Invalidate(ctx, id, "png", Key{Width: 8, Height: 4})
	remaining, err := content.ListWithPrefix(ctx, store, Prefix(id))
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	removed, err := cache.Purge(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.EqualValues(t, 2, metrics.purged.Load())

	remaining, err = content.ListWithPrefix(ctx, store, Prefix(id))
	require.NoError(t, err)
	assert.Empty(t, remaining)

	untouched, err := content.ListWithPrefix(ctx, store, Prefix(other))
	require.NoError(t, err)
	assert.Len(t, untouched, 1)
}

func TestNewCacheValidation(t *testing.T) {
	_, err := NewCache(nil, Config{}, nil)
	assert.Error(t, err)

	store, err := memory.NewMemoryContentStore(context.Background())
	require.NoError(t, err)
	_, err = NewCache(store, Config{Filter: "sharpest"}, nil)
	assert.Error(t, err)
}
