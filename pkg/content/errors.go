package content

import "errors"

// ============================================================================
// Standard Content Store Errors
// ============================================================================

// Implementations wrap these with the offending ID:
//
//	return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
//
// Callers test with errors.Is.

var (
	// ErrContentNotFound indicates the requested content does not exist.
	ErrContentNotFound = errors.New("content not found")

	// ErrInvalidContentID indicates an empty ID or one containing path
	// separators.
	ErrInvalidContentID = errors.New("invalid content id")

	// ErrNotSupported indicates the backend cannot perform the operation,
	// e.g. reporting free space on object storage.
	ErrNotSupported = errors.New("operation not supported")
)
