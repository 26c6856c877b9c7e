package metadata

import (
	"context"

	"github.com/google/uuid"
)

// ============================================================================
// Store Interface
// ============================================================================

// Store persists node records with plain CRUD and listing operations.
//
// The store holds no business rules: name collisions, ownership, cycle
// checks and trash semantics all live in the drive package, which composes
// these calls. This keeps every backend small and lets one conformance suite
// cover all of them.
//
// Ownership Scoping:
// Listing methods are always scoped to an owner. Point lookups by id are not,
// so callers must compare OwnerID themselves and report a foreign record as
// not found.
//
// Errors:
// Lookups of missing records return a *StoreError with ErrNotFound. Backend
// failures are wrapped in a *StoreError with ErrIOError.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Individual calls are
// atomic; sequences of calls are not.
type Store interface {
	// ========================================================================
	// Folders
	// ========================================================================

	// GetFolder returns a copy of the folder record.
	GetFolder(ctx context.Context, id uuid.UUID) (*Folder, error)

	// PutFolder inserts or replaces a folder record, keeping the parent and
	// owner indexes in sync with the new ParentID.
	PutFolder(ctx context.Context, folder *Folder) error

	// DeleteFolder removes a folder record. Deleting a missing folder
	// returns ErrNotFound. Children are not touched.
	DeleteFolder(ctx context.Context, id uuid.UUID) error

	// ========================================================================
	// Files
	// ========================================================================

	GetFile(ctx context.Context, id uuid.UUID) (*File, error)
	PutFile(ctx context.Context, file *File) error
	DeleteFile(ctx context.Context, id uuid.UUID) error

	// ========================================================================
	// Listings
	// ========================================================================

	// ListFolders returns the direct child folders of parent (nil = root)
	// for owner, trashed or not, in no particular order.
	ListFolders(ctx context.Context, owner uuid.UUID, parent *uuid.UUID) ([]*Folder, error)

	// ListFiles returns the direct child files of parent (nil = root).
	ListFiles(ctx context.Context, owner uuid.UUID, parent *uuid.UUID) ([]*File, error)

	// ListOwnerFolders returns every folder of owner regardless of position.
	ListOwnerFolders(ctx context.Context, owner uuid.UUID) ([]*Folder, error)

	// ListOwnerFiles returns every file of owner regardless of position.
	ListOwnerFiles(ctx context.Context, owner uuid.UUID) ([]*File, error)

	// ListAllFiles returns every file of every owner. Used by reconciliation.
	ListAllFiles(ctx context.Context) ([]*File, error)

	// ========================================================================
	// Download keys
	// ========================================================================

	PutDownloadKey(ctx context.Context, key *DownloadKey) error
	GetDownloadKey(ctx context.Context, id uuid.UUID) (*DownloadKey, error)
	DeleteDownloadKey(ctx context.Context, id uuid.UUID) error

	// Close releases backend resources. The store must not be used afterwards.
	Close() error
}
