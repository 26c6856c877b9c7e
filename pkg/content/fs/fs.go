// Package fs implements filesystem-based content storage.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// tempPrefix marks in-flight writes. Listing skips them.
const tempPrefix = ".tmp-"

// FSContentStore implements content.ListableStore using the local filesystem.
//
// Each content ID is a file directly under basePath. Writes go to a
// temporary file in the same directory which is then renamed over the target,
// so readers observe either the old or the new bytes, never a torn write.
//
// Thread Safety:
// Safe for concurrent use. Concurrent writers to the same ID are
// last-writer-wins.
type FSContentStore struct {
	basePath string
}

// NewFSContentStore creates a new filesystem-based content store.
//
// This initializes the store by creating the base directory if it doesn't
// exist. The base directory will be created with permissions 0755.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - basePath: Root directory for storing content files
//
// Returns:
//   - *FSContentStore: Initialized store
//   - error: Returns error if directory creation fails or context is cancelled
func NewFSContentStore(ctx context.Context, basePath string) (*FSContentStore, error) {
	// ========================================================================
	// Step 1: Check context before filesystem operation
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Create the base directory if it doesn't exist
	// ========================================================================

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSContentStore{basePath: basePath}, nil
}

// BasePath returns the directory holding the content files.
func (r *FSContentStore) BasePath() string {
	return r.basePath
}

// getFilePath returns the full path for a given content ID.
func (r *FSContentStore) getFilePath(id metadata.ContentID) (string, error) {
	if err := content.ValidateID(id); err != nil {
		return "", fmt.Errorf("content %q: %w", id, err)
	}
	return filepath.Join(r.basePath, string(id)), nil
}

// ReadContent returns a reader for the content identified by the given ID.
//
// Context Cancellation:
// This operation checks the context before opening the file. Once the file
// is opened, the caller should close the reader if the context is cancelled.
func (r *FSContentStore) ReadContent(ctx context.Context, id metadata.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := r.getFilePath(id)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to open content: %w", err)
	}

	return file, nil
}

// GetContentSize returns the size of the content in bytes.
func (r *FSContentStore) GetContentSize(ctx context.Context, id metadata.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	filePath, err := r.getFilePath(id)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to stat content: %w", err)
	}

	return uint64(info.Size()), nil
}

// ContentExists checks if content with the given ID exists.
func (r *FSContentStore) ContentExists(ctx context.Context, id metadata.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	filePath, err := r.getFilePath(id)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check content existence: %w", err)
}

// WriteContent writes the entire content in one operation.
//
// The data lands in a temporary file which is synced and renamed over the
// target path.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - id: Content identifier
//   - data: Content bytes
//
// Returns:
//   - error: Returns error if the write fails or context is cancelled
func (r *FSContentStore) WriteContent(ctx context.Context, id metadata.ContentID, data []byte) (err error) {
	// ========================================================================
	// Step 1: Check context and resolve the target path
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := r.getFilePath(id)
	if err != nil {
		return err
	}

	// ========================================================================
	// Step 2: Write to a temporary file in the same directory
	// ========================================================================

	tmp, err := os.CreateTemp(r.basePath, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temporary content file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write content: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync content: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close content file: %w", err)
	}
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set content permissions: %w", err)
	}

	// ========================================================================
	// Step 3: Atomically publish the new content
	// ========================================================================

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("failed to publish content: %w", err)
	}

	return nil
}

// Delete removes content. Missing content is not an error.
func (r *FSContentStore) Delete(ctx context.Context, id metadata.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := r.getFilePath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}
