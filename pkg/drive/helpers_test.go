package drive

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	contentmemory "github.com/marmos91/dittodrive/pkg/content/memory"
	"github.com/marmos91/dittodrive/pkg/metadata"
	metadatamemory "github.com/marmos91/dittodrive/pkg/metadata/memory"
	metadatatesting "github.com/marmos91/dittodrive/pkg/metadata/testing"
	"github.com/marmos91/dittodrive/pkg/quota"
	"github.com/marmos91/dittodrive/pkg/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock shared by the drive and its accountant.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	drive *Drive
	store *metadatamemory.MemoryMetadataStore
	blobs *contentmemory.MemoryContentStore
	cache *contentmemory.MemoryContentStore
	plans *quota.StaticPlans
	clock *fakeClock
	owner uuid.UUID
}

// newTestEnv builds a drive over in-memory stores. cfg.Now is replaced by
// the env clock.
func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	ctx := context.Background()

	blobs, err := contentmemory.NewMemoryContentStore(ctx)
	require.NoError(t, err)
	cache, err := contentmemory.NewMemoryContentStore(ctx)
	require.NoError(t, err)

	variants, err := variant.NewCache(cache, variant.Config{}, nil)
	require.NoError(t, err)

	plans, err := quota.NewStaticPlans([]quota.Plan{
		{ID: "pro", Name: "Pro", QuotaBytes: 1 << 20},
	}, nil)
	require.NoError(t, err)

	clock := newFakeClock()
	store := metadatamemory.NewMemoryMetadataStore()
	accountant := quota.NewAccountant(store, plans, quota.Config{Now: clock.Now})

	cfg.Now = clock.Now
	d, err := New(store, blobs, variants, accountant, cfg, nil)
	require.NoError(t, err)

	return &testEnv{
		drive: d,
		store: store,
		blobs: blobs,
		cache: cache,
		plans: plans,
		clock: clock,
		owner: uuid.New(),
	}
}

func testContext() context.Context {
	return context.Background()
}

func (e *testEnv) mkdir(t *testing.T, parent *uuid.UUID, name string) *metadata.Folder {
	t.Helper()
	folder, err := e.drive.CreateFolder(testContext(), e.owner, parent, name, metadata.VisibilityPrivate)
	require.NoError(t, err)
	return folder
}

func (e *testEnv) upload(t *testing.T, parent *uuid.UUID, name string, data []byte) *metadata.File {
	t.Helper()
	file, err := e.drive.StoreFile(testContext(), e.owner, parent, name, data)
	require.NoError(t, err)
	return file
}

func (e *testEnv) folder(t *testing.T, id uuid.UUID) *metadata.Folder {
	t.Helper()
	folder, err := e.store.GetFolder(testContext(), id)
	require.NoError(t, err)
	return folder
}

func (e *testEnv) file(t *testing.T, id uuid.UUID) *metadata.File {
	t.Helper()
	file, err := e.store.GetFile(testContext(), id)
	require.NoError(t, err)
	return file
}

// encodePNG returns a real w×h PNG with a color ramp.
func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// sizedPNG returns size bytes that sniff as PNG. Enough for the upload
// pipeline, which never decodes canonical content.
func sizedPNG(size int) []byte {
	data := make([]byte, size)
	copy(data, "\x89PNG\r\n\x1a\n")
	return data
}

func ptr[T any](v T) *T {
	return &v
}

// requireFieldError asserts err is a validation error carrying code on field.
func requireFieldError(t *testing.T, err error, field, code string) {
	t.Helper()
	require.Error(t, err)
	errs, ok := metadata.AsValidationErrors(err)
	require.True(t, ok, "expected validation errors, got %T: %v", err, err)
	assert.True(t, errs.Has(field, code), "expected %s/%s in %v", field, code, errs)
}

func assertCode(t *testing.T, code metadata.ErrorCode, err error) {
	t.Helper()
	metadatatesting.AssertErrorCode(t, code, err)
}

func itemNames(items []metadata.Item) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Node().NodeName())
	}
	return names
}

func decodedSize(t *testing.T, data []byte) [2]int {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return [2]int{cfg.Width, cfg.Height}
}
