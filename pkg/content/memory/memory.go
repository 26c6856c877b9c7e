// Package memory implements an in-memory content store.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// MemoryContentStore implements content.ListableStore using a map.
//
// It's designed for tests and ephemeral deployments. An optional capacity
// turns it into a content.SpaceReporter so upload bounds can be exercised
// without a real volume.
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Data is copied on read and
// write so callers never alias stored buffers.
type MemoryContentStore struct {
	mu       sync.RWMutex
	data     map[metadata.ContentID][]byte
	used     uint64
	capacity uint64
}

// NewMemoryContentStore creates an empty in-memory content store.
//
// Parameters:
//   - ctx: Context for cancellation (checked before initialization)
//
// Returns:
//   - *MemoryContentStore: Initialized store
//   - error: Only returns error if context is cancelled
func NewMemoryContentStore(ctx context.Context) (*MemoryContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryContentStore{
		data: make(map[metadata.ContentID][]byte),
	}, nil
}

// SetCapacity sets the simulated volume size in bytes. Zero means unbounded.
func (s *MemoryContentStore) SetCapacity(capacity uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capacity = capacity
}

// ============================================================================
// ContentStore
// ============================================================================

func (s *MemoryContentStore) ReadContent(ctx context.Context, id metadata.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}

	return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
}

func (s *MemoryContentStore) GetContentSize(ctx context.Context, id metadata.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[id]
	if !ok {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	return uint64(len(data)), nil
}

func (s *MemoryContentStore) ContentExists(ctx context.Context, id metadata.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[id]
	return ok, nil
}

func (s *MemoryContentStore) WriteContent(ctx context.Context, id metadata.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateID(id); err != nil {
		return fmt.Errorf("content %q: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.data[id]; ok {
		s.used -= uint64(len(old))
	}
	s.data[id] = bytes.Clone(data)
	s.used += uint64(len(data))
	return nil
}

func (s *MemoryContentStore) Delete(ctx context.Context, id metadata.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.data[id]; ok {
		s.used -= uint64(len(old))
		delete(s.data, id)
	}
	return nil
}

// ============================================================================
// ListableStore
// ============================================================================

func (s *MemoryContentStore) ListAllContent(ctx context.Context) ([]metadata.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]metadata.ContentID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryContentStore) DeleteBatch(ctx context.Context, ids []metadata.ContentID) (map[metadata.ContentID]error, error) {
	failures := make(map[metadata.ContentID]error)

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			for _, rest := range ids[i:] {
				failures[rest] = err
			}
			return failures, err
		}
		if err := s.Delete(ctx, id); err != nil {
			failures[id] = err
		}
	}
	return failures, nil
}

// ============================================================================
// SpaceReporter
// ============================================================================

// AvailableBytes reports capacity minus stored bytes, or ErrNotSupported
// when no capacity was set.
func (s *MemoryContentStore) AvailableBytes(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.capacity == 0 {
		return 0, content.ErrNotSupported
	}
	if s.used >= s.capacity {
		return 0, nil
	}
	return s.capacity - s.used, nil
}
