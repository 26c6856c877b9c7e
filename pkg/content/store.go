// Package content defines the byte store behind drive files and their
// cached image variants.
package content

import (
	"context"
	"io"
	"strings"

	"github.com/marmos91/dittodrive/pkg/metadata"
)

// ============================================================================
// ContentStore Interface
// ============================================================================

// ContentStore persists opaque blobs addressed by metadata.ContentID.
//
// The content store manages only bytes. It does NOT manage:
//   - Node records, names or hierarchy → handled by metadata.Store
//   - Ownership and quota → handled by the drive and quota packages
//
// Content Coordination:
// A file record derives its ContentID from its own id and extension
// ("<file-id>.<ext>"), so records and blobs can be matched without an extra
// index. Variant blobs live in a second ContentStore under
// "<file-id>_<w>x<h>[_fill].<ext>".
//
// Content Identifiers:
// IDs are flat names: they never contain path separators. Implementations
// reject anything else with ErrInvalidContentID.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Concurrent writes to the
// same ContentID are last-writer-wins and never expose a partially written
// blob to readers.
type ContentStore interface {
	// ReadContent returns a reader for the content identified by id.
	//
	// The caller is responsible for closing the reader.
	//
	// Returns:
	//   - io.ReadCloser: Reader for the content
	//   - error: ErrContentNotFound if content doesn't exist, or context/IO errors
	ReadContent(ctx context.Context, id metadata.ContentID) (io.ReadCloser, error)

	// GetContentSize returns the size of the content in bytes.
	GetContentSize(ctx context.Context, id metadata.ContentID) (uint64, error)

	// ContentExists checks if content with the given ID exists.
	//
	// Returns false, nil for missing content. Errors are reserved for
	// context cancellation and storage failures.
	ContentExists(ctx context.Context, id metadata.ContentID) (bool, error)

	// WriteContent stores data under id, replacing any previous content.
	WriteContent(ctx context.Context, id metadata.ContentID, data []byte) error

	// Delete removes content. Deleting missing content is not an error.
	Delete(ctx context.Context, id metadata.ContentID) error
}

// ListableStore is implemented by stores that can enumerate their content.
// Reconciliation and variant purging depend on it.
type ListableStore interface {
	ContentStore

	// ListAllContent returns every content ID in the store.
	ListAllContent(ctx context.Context) ([]metadata.ContentID, error)

	// DeleteBatch removes multiple content items.
	//
	// The operation is best-effort: per-item failures are returned in the
	// map (empty = all succeeded). The error is only set when the whole batch
	// was aborted, e.g. by context cancellation.
	DeleteBatch(ctx context.Context, ids []metadata.ContentID) (map[metadata.ContentID]error, error)
}

// SpaceReporter is implemented by stores backed by a volume with finite
// free space. Uploads are bounded by the reported value.
type SpaceReporter interface {
	AvailableBytes(ctx context.Context) (uint64, error)
}

// ListWithPrefix returns the IDs in store that start with prefix.
func ListWithPrefix(ctx context.Context, store ListableStore, prefix string) ([]metadata.ContentID, error) {
	all, err := store.ListAllContent(ctx)
	if err != nil {
		return nil, err
	}

	var matched []metadata.ContentID
	for _, id := range all {
		if strings.HasPrefix(string(id), prefix) {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

// ReadAll reads the whole blob identified by id.
func ReadAll(ctx context.Context, store ContentStore, id metadata.ContentID) ([]byte, error) {
	reader, err := store.ReadContent(ctx, id)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// ValidateID rejects IDs that are empty or could escape a flat namespace.
func ValidateID(id metadata.ContentID) error {
	s := string(id)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return ErrInvalidContentID
	}
	return nil
}
