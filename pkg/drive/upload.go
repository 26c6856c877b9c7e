package drive

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/variant"
)

// ReadOptions selects a variant. Both Width and Height must be set for a
// variant to be rendered; otherwise the canonical bytes are returned.
type ReadOptions struct {
	Width  *uint16
	Height *uint16

	// Fill crops to cover the box instead of fitting inside it
	Fill bool
}

func (o ReadOptions) wantsVariant() bool {
	return o.Width != nil && o.Height != nil
}

// StoreFile uploads data as a new file under parentID (nil = root).
//
// Pipeline:
//  1. Validate the name and check for a sibling with the same name
//  2. Inherit visibility from the parent, or private at the root
//  3. Bound the size by min(max file size, available quota, free disk)
//  4. Sniff the format from magic bytes against the allow-list
//  5. Compute the MD5 checksum
//  6. Persist the record, then write the bytes under File.ContentID
//
// Steps 1 to 4 report problems as one *metadata.ValidationErrors. A write
// failure after the record is committed is an ErrStorageFailure and is not
// rolled back: the record is orphaned until reconciled.
func (d *Drive) StoreFile(
	ctx context.Context,
	owner uuid.UUID,
	parentID *uuid.UUID,
	name string,
	data []byte,
) (file *metadata.File, err error) {
	defer d.observe(opStoreFile, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	errs := metadata.NewValidationErrors()

	// ========================================================================
	// Step 1: Name
	// ========================================================================

	if metadata.ValidateName(name, errs) {
		taken, err := d.nameTaken(ctx, owner, parentID, name, uuid.Nil)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add(metadata.FieldName, metadata.CodeAlreadyExists, "Already exists")
		}
	}

	// ========================================================================
	// Step 2: Visibility
	// ========================================================================

	visibility := metadata.VisibilityPrivate
	parent, _, err := d.resolveTarget(ctx, owner, parentID)
	if err != nil {
		if err := targetFieldError(err, errs); err != nil {
			return nil, err
		}
	} else if parent != nil {
		visibility = parent.Visibility
	}

	// ========================================================================
	// Step 3 and 4: Size and format
	// ========================================================================

	limit, err := d.uploadLimit(ctx, owner)
	if err != nil {
		return nil, err
	}

	size := int64(len(data))
	mediaType := mimetype.Detect(data).String()

	if size > limit {
		errs.Add(metadata.FieldContent, metadata.CodeTooLarge,
			fmt.Sprintf("Must be at most %s", humanize.IBytes(uint64(max(limit, 0)))))
	} else if !metadata.IsAllowedMediaType(mediaType) {
		errs.Add(metadata.FieldContent, metadata.CodeInvalid, "Is invalid")
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 5 and 6: Checksum, record, bytes
	// ========================================================================

	sum := md5.Sum(data)
	now := d.now()
	file = &metadata.File{
		ID:         uuid.New(),
		OwnerID:    owner,
		ParentID:   parentID,
		Name:       name,
		Visibility: visibility,
		MediaType:  mediaType,
		ByteSize:   size,
		Checksum:   hex.EncodeToString(sum[:]),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := d.store.PutFile(ctx, file); err != nil {
		return nil, err
	}

	if err := d.blobs.WriteContent(ctx, file.ContentID(), data); err != nil {
		logger.Error("Content write failed after commit, record %s is orphaned (content=%s): %v",
			file.ID, file.ContentID(), err)
		return nil, &metadata.StoreError{
			Code:    metadata.ErrStorageFailure,
			Message: "failed to store file content",
			Path:    file.ID.String(),
		}
	}

	d.metrics.RecordUpload(size)
	logger.Debug("File stored: id=%s owner=%s type=%s size=%s",
		file.ID, owner, mediaType, humanize.IBytes(uint64(size)))
	return file, nil
}

// uploadLimit is the largest upload owner may make right now.
func (d *Drive) uploadLimit(ctx context.Context, owner uuid.UUID) (int64, error) {
	limit := d.cfg.MaxFileSize

	available, err := d.quota.AvailableSpace(ctx, owner)
	if err != nil {
		return 0, err
	}
	limit = min(limit, available)

	reporter, ok := d.blobs.(content.SpaceReporter)
	if !ok {
		return limit, nil
	}

	free, err := reporter.AvailableBytes(ctx)
	switch {
	case errors.Is(err, content.ErrNotSupported):
		return limit, nil
	case err != nil:
		logger.Error("Failed to read free space of content store: %v", err)
		return 0, &metadata.StoreError{Code: metadata.ErrStorageFailure, Message: "failed to read free space"}
	}

	if free < uint64(max(limit, 0)) {
		limit = int64(free)
	}
	return limit, nil
}

// ReadFile returns the canonical bytes of a file, or a rendered variant when
// opts carries both dimensions.
//
// When the record exists but its content is missing ReadFile returns
// (nil, nil) and leaves the mapping to the caller.
func (d *Drive) ReadFile(ctx context.Context, owner, fileID uuid.UUID, opts ReadOptions) (data []byte, err error) {
	defer d.observe(opReadFile, time.Now(), &err)

	file, err := d.GetFile(ctx, owner, fileID)
	if err != nil {
		return nil, err
	}

	loadCanonical := func(ctx context.Context) ([]byte, error) {
		return content.ReadAll(ctx, d.blobs, file.ContentID())
	}

	if opts.wantsVariant() {
		key := variant.Key{Width: *opts.Width, Height: *opts.Height, Fill: opts.Fill}
		src := variant.Source{FileID: file.ID, MediaType: file.MediaType, Load: loadCanonical}
		data, err = d.variants.Get(ctx, src, key)
	} else {
		data, err = loadCanonical(ctx)
	}

	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, content.ErrContentNotFound):
		logger.Warn("Content of file %s is missing (content=%s)", file.ID, file.ContentID())
		return nil, nil
	case errors.Is(err, variant.ErrInvalidDimensions):
		return nil, &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: err.Error(), Path: file.ID.String()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		logger.Error("Failed to read file %s: %v", file.ID, err)
		return nil, &metadata.StoreError{
			Code:    metadata.ErrStorageFailure,
			Message: "failed to read file content",
			Path:    file.ID.String(),
		}
	}
}

// VariantFilename is the download name for what ReadFile returns with the
// same opts: the stored name for the canonical bytes, or a name such as
// "holiday_200x100_fill.jpg" for a rendition.
func VariantFilename(file *metadata.File, opts ReadOptions) string {
	if !opts.wantsVariant() {
		return file.Name
	}
	return variant.Filename(file.Name, file.Extension(), *opts.Width, *opts.Height, opts.Fill)
}
