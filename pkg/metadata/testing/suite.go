package testing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a conformance suite for metadata.Store implementations.
// It tests the interface contract, not implementation details, so every
// backend (memory, badger) runs the same assertions.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func() metadata.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func() metadata.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Folders", suite.RunFolderTests)
	t.Run("Files", suite.RunFileTests)
	t.Run("Listings", suite.RunListingTests)
	t.Run("DownloadKeys", suite.RunDownloadKeyTests)
	t.Run("Context", suite.RunContextTests)
}

// ============================================================================
// Folders
// ============================================================================

func (suite *StoreTestSuite) RunFolderTests(t *testing.T) {
	t.Run("PutAndGet", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		owner := uuid.New()
		folder := mustPutFolder(t, store, NewFolder(owner, nil, "Photos"))

		got, err := store.GetFolder(testContext(), folder.ID)
		require.NoError(t, err)
		assert.Equal(t, folder.ID, got.ID)
		assert.Equal(t, owner, got.OwnerID)
		assert.Nil(t, got.ParentID)
		assert.Equal(t, "Photos", got.Name)
		assert.Equal(t, metadata.VisibilityPrivate, got.Visibility)
		assert.True(t, folder.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("ReturnedRecordIsACopy", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		folder := mustPutFolder(t, store, NewFolder(uuid.New(), nil, "A"))

		got, err := store.GetFolder(testContext(), folder.ID)
		require.NoError(t, err)
		got.Name = "mutated"

		again, err := store.GetFolder(testContext(), folder.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", again.Name)
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		_, err := store.GetFolder(testContext(), uuid.New())
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})

	t.Run("PutNilID", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		folder := NewFolder(uuid.New(), nil, "A")
		folder.ID = uuid.Nil
		AssertErrorCode(t, metadata.ErrInvalidArgument, store.PutFolder(testContext(), folder))
	})

	t.Run("PutPreservesTrashedAt", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		folder := NewFolder(uuid.New(), nil, "A")
		trashed := time.Now().UTC().Truncate(time.Millisecond)
		folder.TrashedAt = &trashed
		mustPutFolder(t, store, folder)

		got, err := store.GetFolder(testContext(), folder.ID)
		require.NoError(t, err)
		require.NotNil(t, got.TrashedAt)
		assert.True(t, trashed.Equal(*got.TrashedAt))
	})

	t.Run("Delete", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		owner := uuid.New()
		folder := mustPutFolder(t, store, NewFolder(owner, nil, "A"))
		require.NoError(t, store.DeleteFolder(testContext(), folder.ID))

		_, err := store.GetFolder(testContext(), folder.ID)
		AssertErrorCode(t, metadata.ErrNotFound, err)

		children, err := store.ListFolders(testContext(), owner, nil)
		require.NoError(t, err)
		assert.Empty(t, children)

		AssertErrorCode(t, metadata.ErrNotFound, store.DeleteFolder(testContext(), folder.ID))
	})
}

// ============================================================================
// Files
// ============================================================================

func (suite *StoreTestSuite) RunFileTests(t *testing.T) {
	t.Run("PutAndGet", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		owner := uuid.New()
		parent := mustPutFolder(t, store, NewFolder(owner, nil, "Photos"))
		file := mustPutFile(t, store, NewFile(owner, &parent.ID, "cat.png", 1234))

		got, err := store.GetFile(testContext(), file.ID)
		require.NoError(t, err)
		assert.Equal(t, file.ID, got.ID)
		require.NotNil(t, got.ParentID)
		assert.Equal(t, parent.ID, *got.ParentID)
		assert.Equal(t, int64(1234), got.ByteSize)
		assert.Equal(t, "image/png", got.MediaType)
		assert.Equal(t, file.Checksum, got.Checksum)
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		_, err := store.GetFile(testContext(), uuid.New())
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})

	t.Run("Delete", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		owner := uuid.New()
		file := mustPutFile(t, store, NewFile(owner, nil, "a.png", 1))
		require.NoError(t, store.DeleteFile(testContext(), file.ID))

		_, err := store.GetFile(testContext(), file.ID)
		AssertErrorCode(t, metadata.ErrNotFound, err)

		owned, err := store.ListOwnerFiles(testContext(), owner)
		require.NoError(t, err)
		assert.Empty(t, owned)

		AssertErrorCode(t, metadata.ErrNotFound, store.DeleteFile(testContext(), file.ID))
	})
}

// ============================================================================
// Listings
// ============================================================================

func (suite *StoreTestSuite) RunListingTests(t *testing.T) {
	t.Run("ChildrenByParent", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		owner := uuid.New()
		a := mustPutFolder(t, store, NewFolder(owner, nil, "A"))
		b := mustPutFolder(t, store, NewFolder(owner, nil, "B"))
		nested := mustPutFolder(t, store, NewFolder(owner, &a.ID, "Nested"))
		rootFile := mustPutFile(t, store, NewFile(owner, nil, "root.png", 1))
		nestedFile := mustPutFile(t, store, NewFile(owner, &a.ID, "inner.png", 1))

		rootFolders, err := store.ListFolders(testContext(), owner, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, folderIDs(rootFolders))

		aFolders, err := store.ListFolders(testContext(), owner, &a.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{nested.ID}, folderIDs(aFolders))

		rootFiles, err := store.ListFiles(testContext(), owner, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{rootFile.ID}, fileIDs(rootFiles))

		aFiles, err := store.ListFiles(testContext(), owner, &a.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{nestedFile.ID}, fileIDs(aFiles))
	})

	t.Run("ListingsAreOwnerScoped", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		alice, bob := uuid.New(), uuid.New()
		mustPutFolder(t, store, NewFolder(alice, nil, "Mine"))
		mustPutFile(t, store, NewFile(alice, nil, "mine.png", 1))
		theirs := mustPutFolder(t, store, NewFolder(bob, nil, "Theirs"))

		bobRoot, err := store.ListFolders(testContext(), bob, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{theirs.ID}, folderIDs(bobRoot))

		bobFiles, err := store.ListOwnerFiles(testContext(), bob)
		require.NoError(t, err)
		assert.Empty(t, bobFiles)
	})

	t.Run("ReparentMovesIndexEntry", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		owner := uuid.New()
		a := mustPutFolder(t, store, NewFolder(owner, nil, "A"))
		b := mustPutFolder(t, store, NewFolder(owner, nil, "B"))
		file := mustPutFile(t, store, NewFile(owner, &a.ID, "f.png", 1))

		b.ParentID = &a.ID
		mustPutFolder(t, store, b)
		file.ParentID = nil
		mustPutFile(t, store, file)

		rootFolders, err := store.ListFolders(testContext(), owner, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{a.ID}, folderIDs(rootFolders))

		aFolders, err := store.ListFolders(testContext(), owner, &a.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{b.ID}, folderIDs(aFolders))

		aFiles, err := store.ListFiles(testContext(), owner, &a.ID)
		require.NoError(t, err)
		assert.Empty(t, aFiles)

		rootFiles, err := store.ListFiles(testContext(), owner, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{file.ID}, fileIDs(rootFiles))
	})

	t.Run("TrashedChildrenAreListed", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		owner := uuid.New()
		folder := NewFolder(owner, nil, "Gone")
		now := time.Now().UTC()
		folder.TrashedAt = &now
		mustPutFolder(t, store, folder)

		children, err := store.ListFolders(testContext(), owner, nil)
		require.NoError(t, err)
		require.Len(t, children, 1)
		assert.True(t, children[0].Trashed())
	})

	t.Run("OwnerAndGlobalListings", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		alice, bob := uuid.New(), uuid.New()
		a := mustPutFolder(t, store, NewFolder(alice, nil, "A"))
		nested := mustPutFolder(t, store, NewFolder(alice, &a.ID, "N"))
		f1 := mustPutFile(t, store, NewFile(alice, &nested.ID, "1.png", 10))
		f2 := mustPutFile(t, store, NewFile(alice, nil, "2.png", 20))
		f3 := mustPutFile(t, store, NewFile(bob, nil, "3.png", 30))

		folders, err := store.ListOwnerFolders(testContext(), alice)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{a.ID, nested.ID}, folderIDs(folders))

		files, err := store.ListOwnerFiles(testContext(), alice)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{f1.ID, f2.ID}, fileIDs(files))

		all, err := store.ListAllFiles(testContext())
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{f1.ID, f2.ID, f3.ID}, fileIDs(all))
	})
}

// ============================================================================
// Download keys
// ============================================================================

func (suite *StoreTestSuite) RunDownloadKeyTests(t *testing.T) {
	t.Run("PutGetDelete", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		key := &metadata.DownloadKey{
			ID:        uuid.New(),
			FileID:    uuid.New(),
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
		require.NoError(t, store.PutDownloadKey(testContext(), key))

		got, err := store.GetDownloadKey(testContext(), key.ID)
		require.NoError(t, err)
		assert.Equal(t, key.FileID, got.FileID)
		assert.True(t, key.CreatedAt.Equal(got.CreatedAt))

		require.NoError(t, store.DeleteDownloadKey(testContext(), key.ID))
		_, err = store.GetDownloadKey(testContext(), key.ID)
		AssertErrorCode(t, metadata.ErrNotFound, err)

		// Deleting twice is fine
		require.NoError(t, store.DeleteDownloadKey(testContext(), key.ID))
	})

	t.Run("DuplicateRejected", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		key := &metadata.DownloadKey{ID: uuid.New(), FileID: uuid.New(), CreatedAt: time.Now()}
		require.NoError(t, store.PutDownloadKey(testContext(), key))
		AssertErrorCode(t, metadata.ErrAlreadyExists, store.PutDownloadKey(testContext(), key))
	})
}

// ============================================================================
// Context
// ============================================================================

func (suite *StoreTestSuite) RunContextTests(t *testing.T) {
	t.Run("CancelledContext", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := store.GetFolder(ctx, uuid.New())
		assert.ErrorIs(t, err, context.Canceled)

		err = store.PutFile(ctx, NewFile(uuid.New(), nil, "x.png", 1))
		assert.ErrorIs(t, err, context.Canceled)

		_, err = store.ListAllFiles(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
