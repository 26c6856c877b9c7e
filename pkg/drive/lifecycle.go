package drive

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"golang.org/x/sync/errgroup"
)

// PurgeStats summarizes a purge.
type PurgeStats struct {
	Folders int
	Files   int

	// Bytes is the total ByteSize of the removed files
	Bytes int64

	// ContentFailures counts blobs whose deletion failed. Their records are
	// gone; the blobs are left for reconciliation.
	ContentFailures int
}

func (s *PurgeStats) add(other *PurgeStats) {
	s.Folders += other.Folders
	s.Files += other.Files
	s.Bytes += other.Bytes
	s.ContentFailures += other.ContentFailures
}

// ============================================================================
// Trash
// ============================================================================

// MoveToTrash trashes a folder or file.
func (d *Drive) MoveToTrash(ctx context.Context, owner uuid.UUID, kind metadata.Kind, id uuid.UUID) error {
	switch kind {
	case metadata.KindFolder:
		return d.TrashFolder(ctx, owner, id)
	case metadata.KindFile:
		return d.TrashFile(ctx, owner, id)
	default:
		return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: fmt.Sprintf("unknown node kind %d", kind)}
	}
}

// TrashFolder marks a folder as trashed. Its descendants become effectively
// trashed without being touched. Trashing a trashed folder is a no-op.
func (d *Drive) TrashFolder(ctx context.Context, owner, id uuid.UUID) (err error) {
	defer d.observe(opTrash, time.Now(), &err)

	folder, err := d.GetFolder(ctx, owner, id)
	if err != nil {
		return err
	}
	if folder.Trashed() {
		return nil
	}

	now := d.now()
	folder.TrashedAt = &now
	folder.UpdatedAt = now
	return d.store.PutFolder(ctx, folder)
}

// TrashFile marks a file as trashed. It stops counting against quota.
func (d *Drive) TrashFile(ctx context.Context, owner, id uuid.UUID) (err error) {
	defer d.observe(opTrash, time.Now(), &err)

	file, err := d.GetFile(ctx, owner, id)
	if err != nil {
		return err
	}
	if file.Trashed() {
		return nil
	}

	now := d.now()
	file.TrashedAt = &now
	file.UpdatedAt = now
	return d.store.PutFile(ctx, file)
}

// ============================================================================
// Restore
// ============================================================================

// Restore brings a folder or file back from the trash.
func (d *Drive) Restore(ctx context.Context, owner uuid.UUID, kind metadata.Kind, id uuid.UUID) error {
	switch kind {
	case metadata.KindFolder:
		return d.RestoreFolder(ctx, owner, id)
	case metadata.KindFile:
		return d.RestoreFile(ctx, owner, id)
	default:
		return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: fmt.Sprintf("unknown node kind %d", kind)}
	}
}

// RestoreFolder clears the trash mark of a folder. If its parent is gone or
// effectively trashed the folder is detached to the root, so no active node
// ever sits under a trashed ancestor. Detaching fails with a name
// already-exists validation error when the root holds the same name.
// Restoring an active folder is a no-op.
func (d *Drive) RestoreFolder(ctx context.Context, owner, id uuid.UUID) (err error) {
	defer d.observe(opRestore, time.Now(), &err)

	folder, err := d.GetFolder(ctx, owner, id)
	if err != nil {
		return err
	}
	if !folder.Trashed() {
		return nil
	}

	folder.ParentID, err = d.restoreParent(ctx, owner, folder.ID, folder.Name, folder.ParentID)
	if err != nil {
		return err
	}
	folder.TrashedAt = nil
	folder.UpdatedAt = d.now()
	return d.store.PutFolder(ctx, folder)
}

// RestoreFile clears the trash mark of a file, detaching it to the root when
// its parent is gone or effectively trashed.
func (d *Drive) RestoreFile(ctx context.Context, owner, id uuid.UUID) (err error) {
	defer d.observe(opRestore, time.Now(), &err)

	file, err := d.GetFile(ctx, owner, id)
	if err != nil {
		return err
	}
	if !file.Trashed() {
		return nil
	}

	file.ParentID, err = d.restoreParent(ctx, owner, file.ID, file.Name, file.ParentID)
	if err != nil {
		return err
	}
	file.TrashedAt = nil
	file.UpdatedAt = d.now()
	return d.store.PutFile(ctx, file)
}

// restoreParent returns parent when a restored node may go back there, or
// nil (root) otherwise. The original parent still reserves the node's name;
// the root does not, so a detach checks it.
func (d *Drive) restoreParent(ctx context.Context, owner, id uuid.UUID, name string, parent *uuid.UUID) (*uuid.UUID, error) {
	if parent == nil {
		return nil, nil
	}

	folder, err := d.GetFolder(ctx, owner, *parent)
	switch {
	case metadata.IsNotFoundError(err):
		logger.Debug("Restore target %s is gone, detaching %s to root", *parent, id)
	case err != nil:
		return nil, err
	default:
		trashed, err := d.effectivelyTrashed(ctx, folder)
		if err != nil {
			return nil, err
		}
		if !trashed {
			return parent, nil
		}
		logger.Debug("Restore target %s is trashed, detaching %s to root", folder.ID, id)
	}

	taken, err := d.nameTaken(ctx, owner, nil, name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		errs := metadata.NewValidationErrors()
		errs.Add(metadata.FieldName, metadata.CodeAlreadyExists, "Already exists")
		return nil, errs
	}
	return nil, nil
}

// FolderIsTrashed reports whether folder is effectively trashed: trashed
// itself or below a trashed ancestor.
func (d *Drive) FolderIsTrashed(ctx context.Context, folder *metadata.Folder) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return d.effectivelyTrashed(ctx, folder)
}

// ListTrash returns the owner's trashed folders then trashed files, each
// ordered by name. Nodes that are only effectively trashed are not listed;
// they come back with their trashed ancestor.
func (d *Drive) ListTrash(ctx context.Context, owner uuid.UUID) ([]metadata.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	folders, err := d.store.ListOwnerFolders(ctx, owner)
	if err != nil {
		return nil, err
	}
	files, err := d.store.ListOwnerFiles(ctx, owner)
	if err != nil {
		return nil, err
	}

	return collectItems(folders, files, metadata.Node.Trashed), nil
}

// ============================================================================
// Purge
// ============================================================================

// Purge permanently deletes a trashed folder or file.
func (d *Drive) Purge(ctx context.Context, owner uuid.UUID, kind metadata.Kind, id uuid.UUID) (*PurgeStats, error) {
	switch kind {
	case metadata.KindFolder:
		return d.PurgeFolder(ctx, owner, id)
	case metadata.KindFile:
		return d.PurgeFile(ctx, owner, id)
	default:
		return nil, &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: fmt.Sprintf("unknown node kind %d", kind)}
	}
}

// PurgeFolder permanently deletes an effectively trashed folder and every
// descendant, trashed or not.
func (d *Drive) PurgeFolder(ctx context.Context, owner, id uuid.UUID) (stats *PurgeStats, err error) {
	defer d.observe(opPurge, time.Now(), &err)

	folder, err := d.GetFolder(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	trashed, err := d.effectivelyTrashed(ctx, folder)
	if err != nil {
		return nil, err
	}
	if !trashed {
		return nil, metadata.NewInvalidOperationError("only trashed folders can be purged", folder.Name)
	}

	stats, files, err := d.purgeTree(ctx, folder)
	if err != nil {
		return nil, err
	}
	stats.ContentFailures = d.deleteContent(ctx, files)
	d.metrics.RecordPurge(stats.Folders, stats.Files, stats.Bytes)
	return stats, nil
}

// PurgeFile permanently deletes an effectively trashed file and its content.
func (d *Drive) PurgeFile(ctx context.Context, owner, id uuid.UUID) (stats *PurgeStats, err error) {
	defer d.observe(opPurge, time.Now(), &err)

	file, err := d.GetFile(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	trashed := file.Trashed()
	if !trashed && file.ParentID != nil {
		parent, err := d.GetFolder(ctx, owner, *file.ParentID)
		if err != nil {
			return nil, err
		}
		if trashed, err = d.effectivelyTrashed(ctx, parent); err != nil {
			return nil, err
		}
	}
	if !trashed {
		return nil, metadata.NewInvalidOperationError("only trashed files can be purged", file.Name)
	}

	if err := d.store.DeleteFile(ctx, file.ID); err != nil {
		return nil, err
	}

	stats = &PurgeStats{Files: 1, Bytes: file.ByteSize}
	stats.ContentFailures = d.deleteContent(ctx, []*metadata.File{file})
	d.metrics.RecordPurge(0, 1, file.ByteSize)
	return stats, nil
}

// EmptyTrash purges every trashed folder and file of owner. Folder purges
// cascade; nodes already removed by an earlier cascade are skipped.
func (d *Drive) EmptyTrash(ctx context.Context, owner uuid.UUID) (stats *PurgeStats, err error) {
	defer d.observe(opEmptyTrash, time.Now(), &err)

	items, err := d.ListTrash(ctx, owner)
	if err != nil {
		return nil, err
	}

	stats = &PurgeStats{}
	var removedFiles []*metadata.File

	for _, item := range items {
		switch item.Kind {
		case metadata.KindFolder:
			// Refetch: an earlier cascade may have removed it.
			folder, err := d.store.GetFolder(ctx, item.Folder.ID)
			if metadata.IsNotFoundError(err) {
				continue
			}
			if err != nil {
				return stats, err
			}
			treeStats, files, err := d.purgeTree(ctx, folder)
			if err != nil {
				return stats, err
			}
			stats.add(treeStats)
			removedFiles = append(removedFiles, files...)

		case metadata.KindFile:
			err := d.store.DeleteFile(ctx, item.File.ID)
			if metadata.IsNotFoundError(err) {
				continue
			}
			if err != nil {
				return stats, err
			}
			stats.Files++
			stats.Bytes += item.File.ByteSize
			removedFiles = append(removedFiles, item.File)
		}
	}

	stats.ContentFailures = d.deleteContent(ctx, removedFiles)
	d.metrics.RecordPurge(stats.Folders, stats.Files, stats.Bytes)

	logger.Info("Trash emptied: owner=%s folders=%d files=%d bytes=%d",
		owner, stats.Folders, stats.Files, stats.Bytes)
	return stats, nil
}

// purgeTree deletes the records of root and all its descendants, files
// first and then folders from the deepest up, so a partial failure never
// leaves a folder whose parent is gone. It returns the deleted files for
// content cleanup.
func (d *Drive) purgeTree(ctx context.Context, root *metadata.Folder) (*PurgeStats, []*metadata.File, error) {
	folders, files, err := d.collectSubtree(ctx, root)
	if err != nil {
		return nil, nil, err
	}

	stats := &PurgeStats{}
	removed := make([]*metadata.File, 0, len(files))

	for _, f := range files {
		if err := d.store.DeleteFile(ctx, f.ID); err != nil {
			if metadata.IsNotFoundError(err) {
				continue
			}
			return stats, removed, err
		}
		stats.Files++
		stats.Bytes += f.ByteSize
		removed = append(removed, f)
	}

	for i := len(folders) - 1; i >= 0; i-- {
		if err := d.store.DeleteFolder(ctx, folders[i].ID); err != nil {
			if metadata.IsNotFoundError(err) {
				continue
			}
			return stats, removed, err
		}
		stats.Folders++
	}

	logger.Debug("Folder tree purged: root=%s folders=%d files=%d", root.ID, stats.Folders, stats.Files)
	return stats, removed, nil
}

// collectSubtree lists root and its descendants breadth first.
func (d *Drive) collectSubtree(ctx context.Context, root *metadata.Folder) ([]*metadata.Folder, []*metadata.File, error) {
	folders := []*metadata.Folder{root}
	seen := map[uuid.UUID]struct{}{root.ID: {}}
	var files []*metadata.File

	for i := 0; i < len(folders); i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		current := folders[i]

		children, err := d.store.ListFolders(ctx, current.OwnerID, &current.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, child := range children {
			if _, dup := seen[child.ID]; dup {
				return nil, nil, corruptHierarchy("folder reachable twice", child.ID)
			}
			seen[child.ID] = struct{}{}
			folders = append(folders, child)
		}

		childFiles, err := d.store.ListFiles(ctx, current.OwnerID, &current.ID)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, childFiles...)
	}

	return folders, files, nil
}

// deleteContent removes the blobs and cached variants of deleted files.
// Failures are logged and counted; the records are already gone.
func (d *Drive) deleteContent(ctx context.Context, files []*metadata.File) int {
	if len(files) == 0 {
		return 0
	}

	var failures atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(d.cfg.PurgeConcurrency)

	for _, f := range files {
		g.Go(func() error {
			if err := d.blobs.Delete(ctx, f.ContentID()); err != nil {
				logger.Warn("Failed to delete content %s of purged file: %v", f.ContentID(), err)
				failures.Add(1)
			}
			if _, err := d.variants.Purge(ctx, f.ID); err != nil && !errors.Is(err, content.ErrNotSupported) {
				logger.Warn("Failed to purge variants of %s: %v", f.ID, err)
			}
			return nil
		})
	}

	_ = g.Wait()
	return int(failures.Load())
}
