package drive

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// ============================================================================
// Lookups
// ============================================================================

// GetFolder returns the folder if it belongs to owner. A folder of another
// owner is reported as not found.
func (d *Drive) GetFolder(ctx context.Context, owner, id uuid.UUID) (*metadata.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	folder, err := d.store.GetFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != owner {
		return nil, metadata.NewNotFoundError(metadata.KindFolder, id)
	}
	return folder, nil
}

// GetFile returns the file if it belongs to owner.
func (d *Drive) GetFile(ctx context.Context, owner, id uuid.UUID) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := d.store.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != owner {
		return nil, metadata.NewNotFoundError(metadata.KindFile, id)
	}
	return file, nil
}

// ============================================================================
// Ancestors
// ============================================================================

// AncestorChain returns the folders from the root down to parentID
// inclusive. It is empty when parentID is nil.
//
// The walk is iterative and bounded by the configured maximum depth. A chain
// that revisits a folder, exceeds the bound or points at a missing folder is
// reported as ErrCorruptHierarchy.
func (d *Drive) AncestorChain(ctx context.Context, owner uuid.UUID, parentID *uuid.UUID) ([]*metadata.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var chain []*metadata.Folder
	seen := make(map[uuid.UUID]struct{})

	for next := parentID; next != nil; {
		if len(chain) >= d.cfg.MaxDepth {
			return nil, corruptHierarchy("ancestor chain exceeds maximum depth", *next)
		}
		if _, dup := seen[*next]; dup {
			return nil, corruptHierarchy("ancestor chain contains a cycle", *next)
		}
		seen[*next] = struct{}{}

		folder, err := d.GetFolder(ctx, owner, *next)
		if err != nil {
			if metadata.IsNotFoundError(err) && len(chain) > 0 {
				return nil, corruptHierarchy("ancestor chain points at a missing folder", *next)
			}
			return nil, err
		}

		chain = append(chain, folder)
		next = folder.ParentID
	}

	slices.Reverse(chain)
	return chain, nil
}

// Breadcrumbs returns the ancestors of a node, root first, excluding the
// node itself.
func (d *Drive) Breadcrumbs(ctx context.Context, owner uuid.UUID, kind metadata.Kind, id uuid.UUID) ([]*metadata.Folder, error) {
	node, err := d.getNode(ctx, owner, kind, id)
	if err != nil {
		return nil, err
	}
	return d.AncestorChain(ctx, owner, node.Parent())
}

func corruptHierarchy(message string, id uuid.UUID) error {
	logger.Error("Corrupt hierarchy: %s: %s", message, id)
	return &metadata.StoreError{
		Code:    metadata.ErrCorruptHierarchy,
		Message: message,
		Path:    id.String(),
	}
}

// effectivelyTrashed reports whether folder or any of its ancestors is
// trashed.
func (d *Drive) effectivelyTrashed(ctx context.Context, folder *metadata.Folder) (bool, error) {
	if folder.Trashed() {
		return true, nil
	}
	chain, err := d.AncestorChain(ctx, folder.OwnerID, folder.ParentID)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(chain, (*metadata.Folder).Trashed), nil
}

// resolveTarget loads a destination folder for a create, move or upload
// together with its ancestor chain. A nil id is the root and yields no
// folder. The target must belong to owner and must not be effectively
// trashed.
func (d *Drive) resolveTarget(ctx context.Context, owner uuid.UUID, id *uuid.UUID) (*metadata.Folder, []*metadata.Folder, error) {
	if id == nil {
		return nil, nil, nil
	}

	target, err := d.GetFolder(ctx, owner, *id)
	if err != nil {
		return nil, nil, err
	}
	chain, err := d.AncestorChain(ctx, owner, target.ParentID)
	if err != nil {
		return nil, nil, err
	}
	if target.Trashed() || slices.ContainsFunc(chain, (*metadata.Folder).Trashed) {
		return nil, nil, metadata.NewInvalidOperationError("target folder is trashed", id.String())
	}
	return target, chain, nil
}

// nameTaken reports whether a sibling under parent other than exclude
// already uses name. Files and folders share the namespace and trashed
// siblings still hold their names.
func (d *Drive) nameTaken(ctx context.Context, owner uuid.UUID, parent *uuid.UUID, name string, exclude uuid.UUID) (bool, error) {
	folders, err := d.store.ListFolders(ctx, owner, parent)
	if err != nil {
		return false, err
	}
	for _, f := range folders {
		if f.ID != exclude && metadata.NamesCollide(f.Name, name) {
			return true, nil
		}
	}

	files, err := d.store.ListFiles(ctx, owner, parent)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if f.ID != exclude && metadata.NamesCollide(f.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

// targetFieldError maps a target lookup failure onto the parent field.
// Failures that are not about the target itself are returned unchanged.
func targetFieldError(err error, errs *metadata.ValidationErrors) error {
	if metadata.IsNotFoundError(err) || metadata.IsInvalidOperation(err) {
		errs.Add(metadata.FieldParent, metadata.CodeInvalid, "Is invalid")
		return nil
	}
	return err
}

// ============================================================================
// Create
// ============================================================================

// CreateFolder creates a folder under parentID (nil = root).
//
// Every input problem is collected into one *metadata.ValidationErrors:
// an invalid or taken name, a parent that is missing, foreign or trashed,
// and a visibility more permissive than the parent's. Nothing is written
// unless all checks pass.
func (d *Drive) CreateFolder(
	ctx context.Context,
	owner uuid.UUID,
	parentID *uuid.UUID,
	name string,
	visibility metadata.Visibility,
) (folder *metadata.Folder, err error) {
	defer d.observe(opCreateFolder, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	errs := metadata.NewValidationErrors()

	if !visibility.Valid() {
		errs.Add(metadata.FieldVisibility, metadata.CodeInvalid, "Is invalid")
	}

	if metadata.ValidateName(name, errs) {
		taken, err := d.nameTaken(ctx, owner, parentID, name, uuid.Nil)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add(metadata.FieldName, metadata.CodeAlreadyExists, "Already exists")
		}
	}

	parent, _, err := d.resolveTarget(ctx, owner, parentID)
	if err != nil {
		if err := targetFieldError(err, errs); err != nil {
			return nil, err
		}
	} else if parent != nil && visibility.Valid() && !visibility.PermittedUnder(parent.Visibility) {
		errs.Add(metadata.FieldVisibility, metadata.CodeNotPermitted, "Not permitted")
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	now := d.now()
	folder = &metadata.Folder{
		ID:         uuid.New(),
		OwnerID:    owner,
		ParentID:   parentID,
		Name:       name,
		Visibility: visibility,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := d.store.PutFolder(ctx, folder); err != nil {
		return nil, err
	}

	logger.Debug("Folder created: id=%s owner=%s name=%q", folder.ID, owner, name)
	return folder, nil
}

// ============================================================================
// Move
// ============================================================================

// MoveFolder moves a folder under targetID (nil = root).
//
// Moving to the current parent is a no-op. Moving a folder into itself or
// into one of its descendants, or into an effectively trashed folder, is an
// ErrInvalidOperation. A name clash in the target is a validation error.
// Only the parent changes: trash state, visibility and children are kept.
func (d *Drive) MoveFolder(ctx context.Context, owner, folderID uuid.UUID, targetID *uuid.UUID) (err error) {
	defer d.observe(opMoveFolder, time.Now(), &err)

	folder, err := d.GetFolder(ctx, owner, folderID)
	if err != nil {
		return err
	}
	if metadata.SameParent(folder.ParentID, targetID) {
		return nil
	}
	if targetID != nil && *targetID == folder.ID {
		return metadata.NewInvalidOperationError("cannot move folder into itself", folder.Name)
	}

	target, chain, err := d.resolveTarget(ctx, owner, targetID)
	if err != nil {
		return err
	}
	if target != nil && slices.ContainsFunc(chain, func(f *metadata.Folder) bool { return f.ID == folder.ID }) {
		return metadata.NewInvalidOperationError("cannot move folder into its own descendant", folder.Name)
	}

	if err := d.checkMoveName(ctx, owner, targetID, folder.Name, folder.ID); err != nil {
		return err
	}

	folder.ParentID = targetID
	folder.UpdatedAt = d.now()
	if err := d.store.PutFolder(ctx, folder); err != nil {
		return err
	}

	logger.Debug("Folder moved: id=%s target=%s", folder.ID, parentString(targetID))
	return nil
}

// MoveFile moves a file under targetID (nil = root).
func (d *Drive) MoveFile(ctx context.Context, owner, fileID uuid.UUID, targetID *uuid.UUID) (err error) {
	defer d.observe(opMoveFile, time.Now(), &err)

	file, err := d.GetFile(ctx, owner, fileID)
	if err != nil {
		return err
	}
	if metadata.SameParent(file.ParentID, targetID) {
		return nil
	}

	if _, _, err := d.resolveTarget(ctx, owner, targetID); err != nil {
		return err
	}
	if err := d.checkMoveName(ctx, owner, targetID, file.Name, file.ID); err != nil {
		return err
	}

	file.ParentID = targetID
	file.UpdatedAt = d.now()
	if err := d.store.PutFile(ctx, file); err != nil {
		return err
	}

	logger.Debug("File moved: id=%s target=%s", file.ID, parentString(targetID))
	return nil
}

func (d *Drive) checkMoveName(ctx context.Context, owner uuid.UUID, target *uuid.UUID, name string, self uuid.UUID) error {
	taken, err := d.nameTaken(ctx, owner, target, name, self)
	if err != nil {
		return err
	}
	if taken {
		errs := metadata.NewValidationErrors()
		errs.Add(metadata.FieldName, metadata.CodeAlreadyExists, "Already exists")
		return errs
	}
	return nil
}

func parentString(id *uuid.UUID) string {
	if id == nil {
		return "root"
	}
	return id.String()
}

// ============================================================================
// Rename
// ============================================================================

// Rename renames a folder or file.
func (d *Drive) Rename(ctx context.Context, owner uuid.UUID, kind metadata.Kind, id uuid.UUID, newName string) error {
	switch kind {
	case metadata.KindFolder:
		return d.RenameFolder(ctx, owner, id, newName)
	case metadata.KindFile:
		return d.RenameFile(ctx, owner, id, newName)
	default:
		return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: fmt.Sprintf("unknown node kind %d", kind)}
	}
}

// RenameFolder renames a folder in place.
func (d *Drive) RenameFolder(ctx context.Context, owner, id uuid.UUID, newName string) (err error) {
	defer d.observe(opRename, time.Now(), &err)

	folder, err := d.GetFolder(ctx, owner, id)
	if err != nil {
		return err
	}
	changed, err := d.checkRename(ctx, folder, newName)
	if err != nil || !changed {
		return err
	}

	folder.Name = newName
	folder.UpdatedAt = d.now()
	return d.store.PutFolder(ctx, folder)
}

// RenameFile renames a file in place. Cached variants are keyed by id and
// stay valid.
func (d *Drive) RenameFile(ctx context.Context, owner, id uuid.UUID, newName string) (err error) {
	defer d.observe(opRename, time.Now(), &err)

	file, err := d.GetFile(ctx, owner, id)
	if err != nil {
		return err
	}
	changed, err := d.checkRename(ctx, file, newName)
	if err != nil || !changed {
		return err
	}

	file.Name = newName
	file.UpdatedAt = d.now()
	return d.store.PutFile(ctx, file)
}

// checkRename validates newName for node. It returns false when the name is
// byte-identical. A case-only change skips the collision check.
func (d *Drive) checkRename(ctx context.Context, node metadata.Node, newName string) (bool, error) {
	errs := metadata.NewValidationErrors()
	if !metadata.ValidateName(newName, errs) {
		return false, errs
	}
	if newName == node.NodeName() {
		return false, nil
	}

	if !metadata.NamesCollide(newName, node.NodeName()) {
		taken, err := d.nameTaken(ctx, node.Owner(), node.Parent(), newName, node.NodeID())
		if err != nil {
			return false, err
		}
		if taken {
			errs.Add(metadata.FieldName, metadata.CodeAlreadyExists, "Already exists")
			return false, errs
		}
	}
	return true, nil
}

// ============================================================================
// Listing
// ============================================================================

// ListChildren returns the active folders then the active files directly
// under parentID (nil = root), each group ordered by name.
func (d *Drive) ListChildren(ctx context.Context, owner uuid.UUID, parentID *uuid.UUID) ([]metadata.Item, error) {
	if parentID != nil {
		if _, err := d.GetFolder(ctx, owner, *parentID); err != nil {
			return nil, err
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	folders, err := d.store.ListFolders(ctx, owner, parentID)
	if err != nil {
		return nil, err
	}
	files, err := d.store.ListFiles(ctx, owner, parentID)
	if err != nil {
		return nil, err
	}

	return collectItems(folders, files, func(n metadata.Node) bool { return !n.Trashed() }), nil
}

// collectItems keeps the nodes accepted by keep, folders first, each group
// sorted by case-insensitive name.
func collectItems(folders []*metadata.Folder, files []*metadata.File, keep func(metadata.Node) bool) []metadata.Item {
	folders = slices.DeleteFunc(folders, func(f *metadata.Folder) bool { return !keep(f) })
	files = slices.DeleteFunc(files, func(f *metadata.File) bool { return !keep(f) })

	slices.SortFunc(folders, func(a, b *metadata.Folder) int { return compareNames(a.Name, b.Name) })
	slices.SortFunc(files, func(a, b *metadata.File) int { return compareNames(a.Name, b.Name) })

	items := make([]metadata.Item, 0, len(folders)+len(files))
	for _, f := range folders {
		items = append(items, metadata.FolderItem(f))
	}
	for _, f := range files {
		items = append(items, metadata.FileItem(f))
	}
	return items
}

func compareNames(a, b string) int {
	if c := cmp.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

// getNode loads a folder or file of owner as a Node.
func (d *Drive) getNode(ctx context.Context, owner uuid.UUID, kind metadata.Kind, id uuid.UUID) (metadata.Node, error) {
	switch kind {
	case metadata.KindFolder:
		return d.GetFolder(ctx, owner, id)
	case metadata.KindFile:
		return d.GetFile(ctx, owner, id)
	default:
		return nil, &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: fmt.Sprintf("unknown node kind %d", kind)}
	}
}
