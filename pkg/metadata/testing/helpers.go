package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

// NewFolder builds an active private folder record for owner under parent.
func NewFolder(owner uuid.UUID, parent *uuid.UUID, name string) *metadata.Folder {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &metadata.Folder{
		ID:         uuid.New(),
		OwnerID:    owner,
		ParentID:   parent,
		Name:       name,
		Visibility: metadata.VisibilityPrivate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewFile builds an active PNG file record for owner under parent.
func NewFile(owner uuid.UUID, parent *uuid.UUID, name string, size int64) *metadata.File {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &metadata.File{
		ID:         uuid.New(),
		OwnerID:    owner,
		ParentID:   parent,
		Name:       name,
		Visibility: metadata.VisibilityPrivate,
		MediaType:  "image/png",
		ByteSize:   size,
		Checksum:   "d41d8cd98f00b204e9800998ecf8427e",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// mustPutFolder stores folder and fails the test on error.
func mustPutFolder(t *testing.T, store metadata.Store, folder *metadata.Folder) *metadata.Folder {
	t.Helper()
	require.NoError(t, store.PutFolder(testContext(), folder))
	return folder
}

// mustPutFile stores file and fails the test on error.
func mustPutFile(t *testing.T, store metadata.Store, file *metadata.File) *metadata.File {
	t.Helper()
	require.NoError(t, store.PutFile(testContext(), file))
	return file
}

func folderIDs(folders []*metadata.Folder) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(folders))
	for _, f := range folders {
		ids = append(ids, f.ID)
	}
	return ids
}

func fileIDs(files []*metadata.File) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	return ids
}

// AssertErrorCode checks that err is a *metadata.StoreError with the
// expected code.
func AssertErrorCode(t *testing.T, expected metadata.ErrorCode, err error, msgAndArgs ...any) bool {
	t.Helper()
	if err == nil {
		return assert.Fail(t, "Expected an error but got nil", msgAndArgs...)
	}

	var storeErr *metadata.StoreError
	if errors.As(err, &storeErr) {
		return assert.Equal(t, expected, storeErr.Code, msgAndArgs...)
	}
	return assert.Failf(t, "Expected a StoreError", "got %T: %v", err)
}
