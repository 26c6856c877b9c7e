// Package badger implements a persistent metadata.Store on BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// BadgerMetadataStore implements metadata.Store using BadgerDB.
//
// Every mutation runs in a single read-write transaction that updates the
// record together with its child and owner index entries, so a crash never
// leaves an index pointing at a stale parent. Badger's optimistic
// transactions provide isolation; conflicting writers get
// badger.ErrConflict, surfaced as ErrIOError.
type BadgerMetadataStore struct {
	db *badger.DB
}

// BadgerMetadataStoreConfig contains configuration for the Badger store.
type BadgerMetadataStoreConfig struct {
	// DBPath is the directory holding the database files
	DBPath string

	// InMemory keeps the database entirely in RAM (tests)
	InMemory bool

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64
}

// NewBadgerMetadataStore opens (or creates) a Badger database.
//
// Parameters:
//   - ctx: Context for cancellation
//   - config: Database location and cache sizing
//
// Returns:
//   - *BadgerMetadataStore: Store ready for concurrent use
//   - error: If the database cannot be opened
func NewBadgerMetadataStore(ctx context.Context, config BadgerMetadataStoreConfig) (*BadgerMetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.DBPath == "" {
			return nil, fmt.Errorf("badger metadata store: db path is required")
		}
		opts = badger.DefaultOptions(config.DBPath)
	}

	// Node records are small JSON documents
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	logger.Debug("Badger metadata store opened: path=%q in_memory=%v", config.DBPath, config.InMemory)

	return &BadgerMetadataStore{db: db}, nil
}

// Close flushes and closes the database.
func (s *BadgerMetadataStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

// translate passes *StoreError and context errors through and wraps
// everything else as ErrIOError.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *metadata.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &metadata.StoreError{
		Code:    metadata.ErrIOError,
		Message: fmt.Sprintf("badger %s failed: %v", op, err),
	}
}

// getValue reads key inside txn. Missing keys return badger.ErrKeyNotFound.
func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// scanIDs returns the trailing uuids of every index key with prefix.
func scanIDs(txn *badger.Txn, prefix []byte) ([]uuid.UUID, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []uuid.UUID
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		id, err := idFromIndexKey(it.Item().Key())
		if err != nil {
			return nil, fmt.Errorf("corrupt index key %q: %w", it.Item().Key(), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getFolderTxn(txn *badger.Txn, id uuid.UUID) (*metadata.Folder, error) {
	data, err := getValue(txn, keyFolder(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, metadata.NewNotFoundError(metadata.KindFolder, id)
	}
	if err != nil {
		return nil, err
	}
	return decodeFolder(data)
}

func getFileTxn(txn *badger.Txn, id uuid.UUID) (*metadata.File, error) {
	data, err := getValue(txn, keyFile(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, metadata.NewNotFoundError(metadata.KindFile, id)
	}
	if err != nil {
		return nil, err
	}
	return decodeFile(data)
}

// ============================================================================
// Folders
// ============================================================================

func (s *BadgerMetadataStore) GetFolder(ctx context.Context, id uuid.UUID) (*metadata.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var folder *metadata.Folder
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		folder, err = getFolderTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, translate("get folder", err)
	}
	return folder, nil
}

func (s *BadgerMetadataStore) PutFolder(ctx context.Context, folder *metadata.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if folder == nil || folder.ID == uuid.Nil {
		return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "folder id is required"}
	}

	data, err := encodeFolder(folder)
	if err != nil {
		return translate("put folder", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		old, err := getFolderTxn(txn, folder.ID)
		switch {
		case err == nil:
			if err := txn.Delete(keyChild(old.OwnerID, old.ParentID, true, old.ID)); err != nil {
				return err
			}
			if err := txn.Delete(keyOwner(old.OwnerID, true, old.ID)); err != nil {
				return err
			}
		case !metadata.IsNotFoundError(err):
			return err
		}

		if err := txn.Set(keyFolder(folder.ID), data); err != nil {
			return err
		}
		if err := txn.Set(keyChild(folder.OwnerID, folder.ParentID, true, folder.ID), []byte{}); err != nil {
			return err
		}
		return txn.Set(keyOwner(folder.OwnerID, true, folder.ID), []byte{})
	})
	return translate("put folder", err)
}

func (s *BadgerMetadataStore) DeleteFolder(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		old, err := getFolderTxn(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(keyChild(old.OwnerID, old.ParentID, true, id)); err != nil {
			return err
		}
		if err := txn.Delete(keyOwner(old.OwnerID, true, id)); err != nil {
			return err
		}
		return txn.Delete(keyFolder(id))
	})
	return translate("delete folder", err)
}

// ============================================================================
// Files
// ============================================================================

func (s *BadgerMetadataStore) GetFile(ctx context.Context, id uuid.UUID) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var file *metadata.File
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		file, err = getFileTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, translate("get file", err)
	}
	return file, nil
}

func (s *BadgerMetadataStore) PutFile(ctx context.Context, file *metadata.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if file == nil || file.ID == uuid.Nil {
		return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "file id is required"}
	}

	data, err := encodeFile(file)
	if err != nil {
		return translate("put file", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		old, err := getFileTxn(txn, file.ID)
		switch {
		case err == nil:
			if err := txn.Delete(keyChild(old.OwnerID, old.ParentID, false, old.ID)); err != nil {
				return err
			}
			if err := txn.Delete(keyOwner(old.OwnerID, false, old.ID)); err != nil {
				return err
			}
		case !metadata.IsNotFoundError(err):
			return err
		}

		if err := txn.Set(keyFile(file.ID), data); err != nil {
			return err
		}
		if err := txn.Set(keyChild(file.OwnerID, file.ParentID, false, file.ID), []byte{}); err != nil {
			return err
		}
		return txn.Set(keyOwner(file.OwnerID, false, file.ID), []byte{})
	})
	return translate("put file", err)
}

func (s *BadgerMetadataStore) DeleteFile(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		old, err := getFileTxn(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(keyChild(old.OwnerID, old.ParentID, false, id)); err != nil {
			return err
		}
		if err := txn.Delete(keyOwner(old.OwnerID, false, id)); err != nil {
			return err
		}
		return txn.Delete(keyFile(id))
	})
	return translate("delete file", err)
}

// ============================================================================
// Listings
// ============================================================================

func (s *BadgerMetadataStore) listFolders(ctx context.Context, op string, prefix []byte) ([]*metadata.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*metadata.Folder
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := scanIDs(txn, prefix)
		if err != nil {
			return err
		}
		out = make([]*metadata.Folder, 0, len(ids))
		for _, id := range ids {
			folder, err := getFolderTxn(txn, id)
			if err != nil {
				return err
			}
			out = append(out, folder)
		}
		return nil
	})
	if err != nil {
		return nil, translate(op, err)
	}
	return out, nil
}

func (s *BadgerMetadataStore) listFiles(ctx context.Context, op string, prefix []byte) ([]*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*metadata.File
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := scanIDs(txn, prefix)
		if err != nil {
			return err
		}
		out = make([]*metadata.File, 0, len(ids))
		for _, id := range ids {
			file, err := getFileTxn(txn, id)
			if err != nil {
				return err
			}
			out = append(out, file)
		}
		return nil
	})
	if err != nil {
		return nil, translate(op, err)
	}
	return out, nil
}

func (s *BadgerMetadataStore) ListFolders(ctx context.Context, owner uuid.UUID, parent *uuid.UUID) ([]*metadata.Folder, error) {
	return s.listFolders(ctx, "list folders", keyChildPrefix(owner, parent, true))
}

func (s *BadgerMetadataStore) ListFiles(ctx context.Context, owner uuid.UUID, parent *uuid.UUID) ([]*metadata.File, error) {
	return s.listFiles(ctx, "list files", keyChildPrefix(owner, parent, false))
}

func (s *BadgerMetadataStore) ListOwnerFolders(ctx context.Context, owner uuid.UUID) ([]*metadata.Folder, error) {
	return s.listFolders(ctx, "list owner folders", keyOwnerPrefix(owner, true))
}

func (s *BadgerMetadataStore) ListOwnerFiles(ctx context.Context, owner uuid.UUID) ([]*metadata.File, error) {
	return s.listFiles(ctx, "list owner files", keyOwnerPrefix(owner, false))
}

// ListAllFiles scans the file record namespace directly.
func (s *BadgerMetadataStore) ListAllFiles(ctx context.Context) ([]*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*metadata.File
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixFile)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if len(out)%100 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			file, err := decodeFile(data)
			if err != nil {
				return err
			}
			out = append(out, file)
		}
		return nil
	})
	if err != nil {
		return nil, translate("list all files", err)
	}
	return out, nil
}

// ============================================================================
// Download keys
// ============================================================================

func (s *BadgerMetadataStore) PutDownloadKey(ctx context.Context, key *metadata.DownloadKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == nil || key.ID == uuid.Nil {
		return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "download key id is required"}
	}

	data, err := encodeDownloadKey(key)
	if err != nil {
		return translate("put download key", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(keyDownload(key.ID))
		if err == nil {
			return &metadata.StoreError{
				Code:    metadata.ErrAlreadyExists,
				Message: "download key already exists",
				Path:    key.ID.String(),
			}
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(keyDownload(key.ID), data)
	})
	return translate("put download key", err)
}

func (s *BadgerMetadataStore) GetDownloadKey(ctx context.Context, id uuid.UUID) (*metadata.DownloadKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var key *metadata.DownloadKey
	err := s.db.View(func(txn *badger.Txn) error {
		data, err := getValue(txn, keyDownload(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &metadata.StoreError{Code: metadata.ErrNotFound, Message: "download key not found", Path: id.String()}
		}
		if err != nil {
			return err
		}
		key, err = decodeDownloadKey(data)
		return err
	})
	if err != nil {
		return nil, translate("get download key", err)
	}
	return key, nil
}

func (s *BadgerMetadataStore) DeleteDownloadKey(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyDownload(id))
	})
	return translate("delete download key", err)
}
