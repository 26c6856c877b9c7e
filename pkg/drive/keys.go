package drive

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// MintDownloadKey creates a short-lived key that stands in for fileID in
// download links, so a link cannot be replayed past the key's lifetime.
func (d *Drive) MintDownloadKey(ctx context.Context, owner, fileID uuid.UUID) (key *metadata.DownloadKey, err error) {
	defer d.observe(opMintKey, time.Now(), &err)

	file, err := d.GetFile(ctx, owner, fileID)
	if err != nil {
		return nil, err
	}

	key = &metadata.DownloadKey{
		ID:        uuid.New(),
		FileID:    file.ID,
		CreatedAt: d.now(),
	}
	if err := d.store.PutDownloadKey(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}

// ResolveDownloadKey returns the file a key points at. Keys are bearer
// tokens and are not scoped to an owner. Unknown and expired keys, and keys
// of purged files, are reported as not found; expired keys are removed.
func (d *Drive) ResolveDownloadKey(ctx context.Context, keyID uuid.UUID) (file *metadata.File, err error) {
	defer d.observe(opResolveKey, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := d.store.GetDownloadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}

	if key.Expired(d.now(), d.cfg.DownloadKeyTTL) {
		if err := d.store.DeleteDownloadKey(ctx, key.ID); err != nil {
			logger.Warn("Failed to delete expired download key %s: %v", key.ID, err)
		}
		return nil, &metadata.StoreError{
			Code:    metadata.ErrNotFound,
			Message: "download key not found",
			Path:    keyID.String(),
		}
	}

	return d.store.GetFile(ctx, key.FileID)
}

// DownloadURL joins the public download path of key onto baseURL:
// <baseURL>/storage/files/<key-id>.
func DownloadURL(baseURL string, key *metadata.DownloadKey) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}
	return base.JoinPath("storage", "files", key.ID.String()).String(), nil
}
