// Package memory implements an in-memory metadata.Store.
//
// It is used for tests and for ephemeral single-process deployments. All
// data is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// parentKey addresses one folder's namespace. uuid.Nil stands for the root.
type parentKey struct {
	owner  uuid.UUID
	parent uuid.UUID
}

func keyFor(owner uuid.UUID, parent *uuid.UUID) parentKey {
	if parent == nil {
		return parentKey{owner: owner, parent: uuid.Nil}
	}
	return parentKey{owner: owner, parent: *parent}
}

// MemoryMetadataStore implements metadata.Store with maps guarded by a single
// RWMutex. Records are cloned on the way in and out so callers never alias
// stored state.
type MemoryMetadataStore struct {
	mu sync.RWMutex

	folders map[uuid.UUID]*metadata.Folder
	files   map[uuid.UUID]*metadata.File
	keys    map[uuid.UUID]*metadata.DownloadKey

	// child indexes per (owner, parent)
	childFolders map[parentKey]map[uuid.UUID]struct{}
	childFiles   map[parentKey]map[uuid.UUID]struct{}
}

// NewMemoryMetadataStore creates an empty store.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{
		folders:      make(map[uuid.UUID]*metadata.Folder),
		files:        make(map[uuid.UUID]*metadata.File),
		keys:         make(map[uuid.UUID]*metadata.DownloadKey),
		childFolders: make(map[parentKey]map[uuid.UUID]struct{}),
		childFiles:   make(map[parentKey]map[uuid.UUID]struct{}),
	}
}

func indexAdd(index map[parentKey]map[uuid.UUID]struct{}, key parentKey, id uuid.UUID) {
	set, ok := index[key]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		index[key] = set
	}
	set[id] = struct{}{}
}

func indexRemove(index map[parentKey]map[uuid.UUID]struct{}, key parentKey, id uuid.UUID) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(index, key)
	}
}

// ============================================================================
// Folders
// ============================================================================

func (s *MemoryMetadataStore) GetFolder(ctx context.Context, id uuid.UUID) (*metadata.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	folder, ok := s.folders[id]
	if !ok {
		return nil, metadata.NewNotFoundError(metadata.KindFolder, id)
	}
	return folder.Clone(), nil
}

func (s *MemoryMetadataStore) PutFolder(ctx context.Context, folder *metadata.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if folder == nil || folder.ID == uuid.Nil {
		return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "folder id is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.folders[folder.ID]; ok {
		indexRemove(s.childFolders, keyFor(old.OwnerID, old.ParentID), old.ID)
	}
	s.folders[folder.ID] = folder.Clone()
	indexAdd(s.childFolders, keyFor(folder.OwnerID, folder.ParentID), folder.ID)
	return nil
}

func (s *MemoryMetadataStore) DeleteFolder(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok {
		return metadata.NewNotFoundError(metadata.KindFolder, id)
	}
	indexRemove(s.childFolders, keyFor(folder.OwnerID, folder.ParentID), id)
	delete(s.folders, id)
	return nil
}

// ============================================================================
// Files
// ============================================================================

func (s *MemoryMetadataStore) GetFile(ctx context.Context, id uuid.UUID) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, ok := s.files[id]
	if !ok {
		return nil, metadata.NewNotFoundError(metadata.KindFile, id)
	}
	return file.Clone(), nil
}

func (s *MemoryMetadataStore) PutFile(ctx context.Context, file *metadata.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if file == nil || file.ID == uuid.Nil {
		return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "file id is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.files[file.ID]; ok {
		indexRemove(s.childFiles, keyFor(old.OwnerID, old.ParentID), old.ID)
	}
	s.files[file.ID] = file.Clone()
	indexAdd(s.childFiles, keyFor(file.OwnerID, file.ParentID), file.ID)
	return nil
}

func (s *MemoryMetadataStore) DeleteFile(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok {
		return metadata.NewNotFoundError(metadata.KindFile, id)
	}
	indexRemove(s.childFiles, keyFor(file.OwnerID, file.ParentID), id)
	delete(s.files, id)
	return nil
}

// ============================================================================
// Listings
// ============================================================================

func (s *MemoryMetadataStore) ListFolders(ctx context.Context, owner uuid.UUID, parent *uuid.UUID) ([]*metadata.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.childFolders[keyFor(owner, parent)]
	out := make([]*metadata.Folder, 0, len(set))
	for id := range set {
		out = append(out, s.folders[id].Clone())
	}
	return out, nil
}

func (s *MemoryMetadataStore) ListFiles(ctx context.Context, owner uuid.UUID, parent *uuid.UUID) ([]*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.childFiles[keyFor(owner, parent)]
	out := make([]*metadata.File, 0, len(set))
	for id := range set {
		out = append(out, s.files[id].Clone())
	}
	return out, nil
}

func (s *MemoryMetadataStore) ListOwnerFolders(ctx context.Context, owner uuid.UUID) ([]*metadata.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*metadata.Folder
	for _, folder := range s.folders {
		if folder.OwnerID == owner {
			out = append(out, folder.Clone())
		}
	}
	return out, nil
}

func (s *MemoryMetadataStore) ListOwnerFiles(ctx context.Context, owner uuid.UUID) ([]*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*metadata.File
	for _, file := range s.files {
		if file.OwnerID == owner {
			out = append(out, file.Clone())
		}
	}
	return out, nil
}

func (s *MemoryMetadataStore) ListAllFiles(ctx context.Context) ([]*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*metadata.File, 0, len(s.files))
	for _, file := range s.files {
		out = append(out, file.Clone())
	}
	return out, nil
}

// ============================================================================
// Download keys
// ============================================================================

func (s *MemoryMetadataStore) PutDownloadKey(ctx context.Context, key *metadata.DownloadKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == nil || key.ID == uuid.Nil {
		return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "download key id is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keys[key.ID]; exists {
		return &metadata.StoreError{
			Code:    metadata.ErrAlreadyExists,
			Message: "download key already exists",
			Path:    key.ID.String(),
		}
	}
	k := *key
	s.keys[key.ID] = &k
	return nil
}

func (s *MemoryMetadataStore) GetDownloadKey(ctx context.Context, id uuid.UUID) (*metadata.DownloadKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, &metadata.StoreError{Code: metadata.ErrNotFound, Message: "download key not found", Path: id.String()}
	}
	k := *key
	return &k, nil
}

func (s *MemoryMetadataStore) DeleteDownloadKey(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, id)
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryMetadataStore) Close() error {
	return nil
}

// String reports record counts, handy in debug logs.
func (s *MemoryMetadataStore) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("memory(folders=%d files=%d keys=%d)", len(s.folders), len(s.files), len(s.keys))
}
