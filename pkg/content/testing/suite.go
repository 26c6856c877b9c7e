package testing

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a comprehensive test suite for content store
// implementations. It tests the interface contract, not implementation
// details, making it reusable across memory, filesystem and S3 backends.
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func() content.ListableStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh store instance
	// for each test. This ensures test isolation.
	NewStore func() content.ListableStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("InvalidIDs", suite.RunInvalidIDTests)
	t.Run("Listing", suite.RunListingTests)
	t.Run("Concurrency", suite.RunConcurrencyTests)
	t.Run("Context", suite.RunContextTests)
}

// ============================================================================
// Basic operations
// ============================================================================

func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("WriteAndRead", func(t *testing.T) {
		store := suite.NewStore()
		data := []byte("\x89PNG\r\n\x1a\nfake image body")

		mustWriteContent(t, store, "a.png", data)

		assert.Equal(t, data, mustReadContent(t, store, "a.png"))
		size, err := store.GetContentSize(testContext(), "a.png")
		require.NoError(t, err)
		assert.Equal(t, uint64(len(data)), size)
		assertContentExists(t, store, "a.png", true)
	})

	t.Run("EmptyContent", func(t *testing.T) {
		store := suite.NewStore()
		mustWriteContent(t, store, "empty.bin", []byte{})

		assert.Empty(t, mustReadContent(t, store, "empty.bin"))
		assertContentExists(t, store, "empty.bin", true)
	})

	t.Run("Overwrite", func(t *testing.T) {
		store := suite.NewStore()
		mustWriteContent(t, store, "a.png", []byte("first version"))
		mustWriteContent(t, store, "a.png", []byte("second"))

		assert.Equal(t, []byte("second"), mustReadContent(t, store, "a.png"))
	})

	t.Run("WriteDoesNotAliasCallerBuffer", func(t *testing.T) {
		store := suite.NewStore()
		data := []byte("abc")
		mustWriteContent(t, store, "a.bin", data)
		data[0] = 'z'

		assert.Equal(t, []byte("abc"), mustReadContent(t, store, "a.bin"))
	})

	t.Run("ReadMissing", func(t *testing.T) {
		store := suite.NewStore()

		_, err := store.ReadContent(testContext(), "missing.png")
		AssertErrorIs(t, content.ErrContentNotFound, err)

		_, err = store.GetContentSize(testContext(), "missing.png")
		AssertErrorIs(t, content.ErrContentNotFound, err)

		assertContentExists(t, store, "missing.png", false)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		store := suite.NewStore()
		mustWriteContent(t, store, "a.png", []byte("x"))

		require.NoError(t, store.Delete(testContext(), "a.png"))
		assertContentExists(t, store, "a.png", false)
		require.NoError(t, store.Delete(testContext(), "a.png"))
	})
}

// ============================================================================
// Invalid IDs
// ============================================================================

func (suite *StoreTestSuite) RunInvalidIDTests(t *testing.T) {
	for _, id := range []metadata.ContentID{"", "..", "a/b.png", `a\b.png`} {
		t.Run(fmt.Sprintf("Reject_%q", id), func(t *testing.T) {
			store := suite.NewStore()
			err := store.WriteContent(testContext(), id, []byte("x"))
			AssertErrorIs(t, content.ErrInvalidContentID, err)
		})
	}
}

// ============================================================================
// Listing and batch deletion
// ============================================================================

func (suite *StoreTestSuite) RunListingTests(t *testing.T) {
	t.Run("ListAllContent", func(t *testing.T) {
		store := suite.NewStore()
		ids := []metadata.ContentID{"a.png", "b.jpg", "c_10x10.gif"}
		for _, id := range ids {
			mustWriteContent(t, store, id, []byte(id))
		}

		listed, err := store.ListAllContent(testContext())
		require.NoError(t, err)
		assert.ElementsMatch(t, ids, listed)
	})

	t.Run("ListWithPrefix", func(t *testing.T) {
		store := suite.NewStore()
		mustWriteContent(t, store, "abc_10x10.png", []byte("1"))
		mustWriteContent(t, store, "abc_20x20_fill.png", []byte("2"))
		mustWriteContent(t, store, "abd_10x10.png", []byte("3"))

		matched, err := content.ListWithPrefix(testContext(), store, "abc_")
		require.NoError(t, err)
		assert.ElementsMatch(t, []metadata.ContentID{"abc_10x10.png", "abc_20x20_fill.png"}, matched)
	})

	t.Run("DeleteBatch", func(t *testing.T) {
		store := suite.NewStore()
		mustWriteContent(t, store, "a.png", []byte("1"))
		mustWriteContent(t, store, "b.png", []byte("2"))
		mustWriteContent(t, store, "c.png", []byte("3"))

		failures, err := store.DeleteBatch(testContext(), []metadata.ContentID{"a.png", "b.png", "never.png"})
		require.NoError(t, err)
		assert.Empty(t, failures)

		listed, err := store.ListAllContent(testContext())
		require.NoError(t, err)
		assert.ElementsMatch(t, []metadata.ContentID{"c.png"}, listed)
	})
}

// ============================================================================
// Concurrency
// ============================================================================

func (suite *StoreTestSuite) RunConcurrencyTests(t *testing.T) {
	t.Run("ConcurrentWritersNeverTear", func(t *testing.T) {
		store := suite.NewStore()
		payloads := [][]byte{
			bytes.Repeat([]byte{'a'}, 4096),
			bytes.Repeat([]byte{'b'}, 4096),
			bytes.Repeat([]byte{'c'}, 4096),
		}

		var wg sync.WaitGroup
		for i := 0; i < 12; i++ {
			wg.Add(1)
			go func(p []byte) {
				defer wg.Done()
				_ = store.WriteContent(testContext(), "shared.png", p)
			}(payloads[i%len(payloads)])
		}
		wg.Wait()

		got := mustReadContent(t, store, "shared.png")
		assert.Contains(t, payloads, got, "content must equal one complete write")
	})
}

// ============================================================================
// Context
// ============================================================================

func (suite *StoreTestSuite) RunContextTests(t *testing.T) {
	t.Run("CancelledContext", func(t *testing.T) {
		store := suite.NewStore()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		AssertErrorIs(t, context.Canceled, store.WriteContent(ctx, "a.png", []byte("x")))

		_, err := store.ReadContent(ctx, "a.png")
		AssertErrorIs(t, context.Canceled, err)

		_, err = store.ListAllContent(ctx)
		AssertErrorIs(t, context.Canceled, err)
	})
}
