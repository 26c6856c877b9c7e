package drive

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadKeys(t *testing.T) {
	ctx := testContext()

	t.Run("MintAndResolve", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.upload(t, nil, "a.png", sizedPNG(16))

		key, err := env.drive.MintDownloadKey(ctx, env.owner, file.ID)
		require.NoError(t, err)
		assert.Equal(t, file.ID, key.FileID)
		assert.NotEqual(t, file.ID, key.ID)

		resolved, err := env.drive.ResolveDownloadKey(ctx, key.ID)
		require.NoError(t, err)
		assert.Equal(t, file.ID, resolved.ID)
	})

	t.Run("Expires", func(t *testing.T) {
		env := newTestEnv(t, Config{DownloadKeyTTL: time.Minute})
		file := env.upload(t, nil, "a.png", sizedPNG(16))
		key, err := env.drive.MintDownloadKey(ctx, env.owner, file.ID)
		require.NoError(t, err)

		env.clock.Advance(59 * time.Second)
		_, err = env.drive.ResolveDownloadKey(ctx, key.ID)
		require.NoError(t, err)

		env.clock.Advance(time.Second)
		_, err = env.drive.ResolveDownloadKey(ctx, key.ID)
		assertCode(t, metadata.ErrNotFound, err)

		_, err = env.store.GetDownloadKey(ctx, key.ID)
		assertCode(t, metadata.ErrNotFound, err)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		_, err := env.drive.ResolveDownloadKey(ctx, uuid.New())
		assertCode(t, metadata.ErrNotFound, err)
	})

	t.Run("ForeignFile", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.upload(t, nil, "a.png", sizedPNG(16))

		_, err := env.drive.MintDownloadKey(ctx, uuid.New(), file.ID)
		assertCode(t, metadata.ErrNotFound, err)
	})

	t.Run("PurgedFile", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.upload(t, nil, "a.png", sizedPNG(16))
		key, err := env.drive.MintDownloadKey(ctx, env.owner, file.ID)
		require.NoError(t, err)

		require.NoError(t, env.drive.TrashFile(ctx, env.owner, file.ID))
		_, err = env.drive.PurgeFile(ctx, env.owner, file.ID)
		require.NoError(t, err)

		_, err = env.drive.ResolveDownloadKey(ctx, key.ID)
		assertCode(t, metadata.ErrNotFound, err)
	})
}

func TestDownloadURL(t *testing.T) {
	key := &metadata.DownloadKey{ID: uuid.MustParse("0b0f4c8e-0f5e-4a53-9d38-6c1d9a2e7b11")}

	got, err := DownloadURL("https://drive.example.com/", key)
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example.com/storage/files/0b0f4c8e-0f5e-4a53-9d38-6c1d9a2e7b11", got)

	got, err = DownloadURL("https://example.com/app", key)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/app/storage/files/0b0f4c8e-0f5e-4a53-9d38-6c1d9a2e7b11", got)

	_, err = DownloadURL("not a url", key)
	assert.Error(t, err)
}
