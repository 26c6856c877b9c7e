package drive

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/metadata"
	metadatatesting "github.com/marmos91/dittodrive/pkg/metadata/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFolder(t *testing.T) {
	ctx := testContext()

	t.Run("AtRoot", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		folder, err := env.drive.CreateFolder(ctx, env.owner, nil, "Photos", metadata.VisibilityPublic)
		require.NoError(t, err)

		assert.Nil(t, folder.ParentID)
		assert.Equal(t, env.owner, folder.OwnerID)
		assert.Equal(t, metadata.VisibilityPublic, folder.Visibility)
		assert.Equal(t, env.clock.Now(), folder.CreatedAt)
		assert.Equal(t, folder, env.folder(t, folder.ID))
	})

	t.Run("Nested", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		parent := env.mkdir(t, nil, "Photos")
		child := env.mkdir(t, &parent.ID, "2024")
		require.NotNil(t, child.ParentID)
		assert.Equal(t, parent.ID, *child.ParentID)
	})

	t.Run("InvalidNames", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		tests := []struct {
			name, input, code string
		}{
			{"Blank", "", metadata.CodeBlank},
			{"TooLong", strings.Repeat("x", metadata.MaxNameLength+1), metadata.CodeTooLong},
			{"Separator", "a/b", metadata.CodeInvalid},
			{"Reserved", "what?", metadata.CodeInvalid},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.drive.CreateFolder(ctx, env.owner, nil, tt.input, metadata.VisibilityPrivate)
				requireFieldError(t, err, metadata.FieldName, tt.code)
			})
		}
	})

	t.Run("DuplicateNameIsCaseInsensitive", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		env.mkdir(t, nil, "Photos")

		_, err := env.drive.CreateFolder(ctx, env.owner, nil, "PHOTOS", metadata.VisibilityPrivate)
		requireFieldError(t, err, metadata.FieldName, metadata.CodeAlreadyExists)
	})

	t.Run("NameClashesWithFile", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		env.upload(t, nil, "notes.png", sizedPNG(64))

		_, err := env.drive.CreateFolder(ctx, env.owner, nil, "Notes.PNG", metadata.VisibilityPrivate)
		requireFieldError(t, err, metadata.FieldName, metadata.CodeAlreadyExists)
	})

	t.Run("TrashedSiblingKeepsName", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		old := env.mkdir(t, nil, "Photos")
		require.NoError(t, env.drive.TrashFolder(ctx, env.owner, old.ID))

		_, err := env.drive.CreateFolder(ctx, env.owner, nil, "photos", metadata.VisibilityPrivate)
		requireFieldError(t, err, metadata.FieldName, metadata.CodeAlreadyExists)
	})

	t.Run("SameNameInOtherParentOrOwner", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		parent := env.mkdir(t, nil, "Photos")
		env.mkdir(t, &parent.ID, "Photos")

		_, err := env.drive.CreateFolder(ctx, uuid.New(), nil, "Photos", metadata.VisibilityPrivate)
		assert.NoError(t, err)
	})

	t.Run("ForeignParent", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		foreign, err := env.drive.CreateFolder(ctx, uuid.New(), nil, "Theirs", metadata.VisibilityPublic)
		require.NoError(t, err)

		_, err = env.drive.CreateFolder(ctx, env.owner, &foreign.ID, "Mine", metadata.VisibilityPrivate)
		requireFieldError(t, err, metadata.FieldParent, metadata.CodeInvalid)
	})

	t.Run("TrashedAncestor", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "A")
		b := env.mkdir(t, &a.ID, "B")
		require.NoError(t, env.drive.TrashFolder(ctx, env.owner, a.ID))

		_, err := env.drive.CreateFolder(ctx, env.owner, &b.ID, "C", metadata.VisibilityPrivate)
		requireFieldError(t, err, metadata.FieldParent, metadata.CodeInvalid)
	})

	t.Run("VisibilityMayOnlyTighten", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		parent, err := env.drive.CreateFolder(ctx, env.owner, nil, "Shared", metadata.VisibilityUsers)
		require.NoError(t, err)

		_, err = env.drive.CreateFolder(ctx, env.owner, &parent.ID, "Open", metadata.VisibilityPublic)
		requireFieldError(t, err, metadata.FieldVisibility, metadata.CodeNotPermitted)

		_, err = env.drive.CreateFolder(ctx, env.owner, &parent.ID, "Same", metadata.VisibilityUsers)
		assert.NoError(t, err)
		_, err = env.drive.CreateFolder(ctx, env.owner, &parent.ID, "Closed", metadata.VisibilityFollowers)
		assert.NoError(t, err)
	})

	t.Run("CollectsAllProblemsWithoutWriting", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		missing := uuid.New()

		_, err := env.drive.CreateFolder(ctx, env.owner, &missing, "", metadata.Visibility(9))
		requireFieldError(t, err, metadata.FieldName, metadata.CodeBlank)
		requireFieldError(t, err, metadata.FieldParent, metadata.CodeInvalid)
		requireFieldError(t, err, metadata.FieldVisibility, metadata.CodeInvalid)

		folders, err := env.store.ListOwnerFolders(ctx, env.owner)
		require.NoError(t, err)
		assert.Empty(t, folders)
	})
}

func TestMoveFolder(t *testing.T) {
	ctx := testContext()

	t.Run("IntoSibling", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "A")
		b := env.mkdir(t, nil, "B")

		require.NoError(t, env.drive.MoveFolder(ctx, env.owner, a.ID, &b.ID))
		moved := env.folder(t, a.ID)
		require.NotNil(t, moved.ParentID)
		assert.Equal(t, b.ID, *moved.ParentID)
	})

	t.Run("ToRoot", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "A")
		b := env.mkdir(t, &a.ID, "B")

		require.NoError(t, env.drive.MoveFolder(ctx, env.owner, b.ID, nil))
		assert.Nil(t, env.folder(t, b.ID).ParentID)
	})

	t.Run("SameParentIsNoOp", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "A")
		b := env.mkdir(t, &a.ID, "B")
		env.clock.Advance(time.Minute)

		require.NoError(t, env.drive.MoveFolder(ctx, env.owner, b.ID, &a.ID))
		assert.Equal(t, b.UpdatedAt, env.folder(t, b.ID).UpdatedAt)
	})

	t.Run("IntoItself", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "A")

		err := env.drive.MoveFolder(ctx, env.owner, a.ID, &a.ID)
		assertCode(t, metadata.ErrInvalidOperation, err)
	})

	t.Run("IntoDeepDescendant", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "A")
		b := env.mkdir(t, &a.ID, "B")
		c := env.mkdir(t, &b.ID, "C")

		err := env.drive.MoveFolder(ctx, env.owner, a.ID, &c.ID)
		assertCode(t, metadata.ErrInvalidOperation, err)
		assert.Nil(t, env.folder(t, a.ID).ParentID)
	})

	t.Run("IntoTrashedTarget", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "A")
		bin := env.mkdir(t, nil, "Bin")
		inner := env.mkdir(t, &bin.ID, "Inner")
		require.NoError(t, env.drive.TrashFolder(ctx, env.owner, bin.ID))

		assertCode(t, metadata.ErrInvalidOperation, env.drive.MoveFolder(ctx, env.owner, a.ID, &bin.ID))
		assertCode(t, metadata.ErrInvalidOperation, env.drive.MoveFolder(ctx, env.owner, a.ID, &inner.ID))
	})

	t.Run("ForeignTarget", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "A")
		theirs, err := env.drive.CreateFolder(ctx, uuid.New(), nil, "Theirs", metadata.VisibilityPrivate)
		require.NoError(t, err)

		assertCode(t, metadata.ErrNotFound, env.drive.MoveFolder(ctx, env.owner, a.ID, &theirs.ID))
		assertCode(t, metadata.ErrNotFound, env.drive.MoveFolder(ctx, uuid.New(), a.ID, nil))
	})

	t.Run("NameClashInTarget", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "Docs")
		b := env.mkdir(t, nil, "B")
		env.mkdir(t, &b.ID, "docs")

		err := env.drive.MoveFolder(ctx, env.owner, a.ID, &b.ID)
		requireFieldError(t, err, metadata.FieldName, metadata.CodeAlreadyExists)
	})

	t.Run("KeepsTrashStateAndVisibility", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a, err := env.drive.CreateFolder(ctx, env.owner, nil, "A", metadata.VisibilityPublic)
		require.NoError(t, err)
		child := env.mkdir(t, &a.ID, "Child")
		target := env.mkdir(t, nil, "Target")
		require.NoError(t, env.drive.TrashFolder(ctx, env.owner, a.ID))

		require.NoError(t, env.drive.MoveFolder(ctx, env.owner, a.ID, &target.ID))

		moved := env.folder(t, a.ID)
		assert.True(t, moved.Trashed())
		assert.Equal(t, metadata.VisibilityPublic, moved.Visibility)
		assert.Equal(t, a.ID, *env.folder(t, child.ID).ParentID)
	})
}

func TestMoveFile(t *testing.T) {
	ctx := testContext()

	t.Run("IntoFolder", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		dir := env.mkdir(t, nil, "Dir")
		file := env.upload(t, nil, "a.png", sizedPNG(32))

		require.NoError(t, env.drive.MoveFile(ctx, env.owner, file.ID, &dir.ID))
		assert.Equal(t, dir.ID, *env.file(t, file.ID).ParentID)

		require.NoError(t, env.drive.MoveFile(ctx, env.owner, file.ID, nil))
		assert.Nil(t, env.file(t, file.ID).ParentID)
	})

	t.Run("NameClash", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		dir := env.mkdir(t, nil, "Dir")
		env.upload(t, &dir.ID, "A.png", sizedPNG(32))
		file := env.upload(t, nil, "a.png", sizedPNG(32))

		err := env.drive.MoveFile(ctx, env.owner, file.ID, &dir.ID)
		requireFieldError(t, err, metadata.FieldName, metadata.CodeAlreadyExists)
	})

	t.Run("TrashedTarget", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		dir := env.mkdir(t, nil, "Dir")
		file := env.upload(t, nil, "a.png", sizedPNG(32))
		require.NoError(t, env.drive.TrashFolder(ctx, env.owner, dir.ID))

		assertCode(t, metadata.ErrInvalidOperation, env.drive.MoveFile(ctx, env.owner, file.ID, &dir.ID))
	})

	t.Run("UnknownFile", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		assertCode(t, metadata.ErrNotFound, env.drive.MoveFile(ctx, env.owner, uuid.New(), nil))
	})
}

func TestRename(t *testing.T) {
	ctx := testContext()

	t.Run("Folder", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "Old")

		require.NoError(t, env.drive.Rename(ctx, env.owner, metadata.KindFolder, a.ID, "New"))
		assert.Equal(t, "New", env.folder(t, a.ID).Name)
	})

	t.Run("IdenticalIsNoOp", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "Same")
		env.clock.Advance(time.Minute)

		require.NoError(t, env.drive.RenameFolder(ctx, env.owner, a.ID, "Same"))
		assert.Equal(t, a.UpdatedAt, env.folder(t, a.ID).UpdatedAt)
	})

	t.Run("CaseOnlyChange", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.upload(t, nil, "Report.txt", sizedPNG(32))

		require.NoError(t, env.drive.RenameFile(ctx, env.owner, file.ID, "REPORT.txt"))
		assert.Equal(t, "REPORT.txt", env.file(t, file.ID).Name)
	})

	t.Run("ClashWithSibling", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		env.mkdir(t, nil, "Taken")
		file := env.upload(t, nil, "free.png", sizedPNG(32))

		err := env.drive.Rename(ctx, env.owner, metadata.KindFile, file.ID, "taken")
		requireFieldError(t, err, metadata.FieldName, metadata.CodeAlreadyExists)
		assert.Equal(t, "free.png", env.file(t, file.ID).Name)
	})

	t.Run("ScopedToCurrentParent", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		dir := env.mkdir(t, nil, "Dir")
		env.mkdir(t, nil, "Taken")
		child := env.mkdir(t, &dir.ID, "Child")

		assert.NoError(t, env.drive.RenameFolder(ctx, env.owner, child.ID, "Taken"))
	})

	t.Run("InvalidName", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "A")

		requireFieldError(t, env.drive.RenameFolder(ctx, env.owner, a.ID, "a|b"), metadata.FieldName, metadata.CodeInvalid)
		requireFieldError(t, env.drive.RenameFolder(ctx, env.owner, a.ID, ""), metadata.FieldName, metadata.CodeBlank)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		assertCode(t, metadata.ErrInvalidArgument, env.drive.Rename(ctx, env.owner, metadata.Kind(7), uuid.New(), "x"))
	})
}

func TestAncestorChain(t *testing.T) {
	ctx := testContext()

	t.Run("RootFirst", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		a := env.mkdir(t, nil, "A")
		b := env.mkdir(t, &a.ID, "B")
		c := env.mkdir(t, &b.ID, "C")

		chain, err := env.drive.AncestorChain(ctx, env.owner, &c.ID)
		require.NoError(t, err)
		require.Len(t, chain, 3)
		assert.Equal(t, []string{"A", "B", "C"}, []string{chain[0].Name, chain[1].Name, chain[2].Name})
	})

	t.Run("RootIsEmpty", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		chain, err := env.drive.AncestorChain(ctx, env.owner, nil)
		require.NoError(t, err)
		assert.Empty(t, chain)
	})

	t.Run("StoredCycle", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		x := metadatatesting.NewFolder(env.owner, nil, "X")
		y := metadatatesting.NewFolder(env.owner, &x.ID, "Y")
		x.ParentID = &y.ID
		require.NoError(t, env.store.PutFolder(ctx, x))
		require.NoError(t, env.store.PutFolder(ctx, y))

		_, err := env.drive.AncestorChain(ctx, env.owner, &x.ID)
		assertCode(t, metadata.ErrCorruptHierarchy, err)
	})

	t.Run("DepthBound", func(t *testing.T) {
		env := newTestEnv(t, Config{MaxDepth: 3})
		var parent *uuid.UUID
		for i := 0; i < 3; i++ {
			f := env.mkdir(t, parent, "level")
			parent = &f.ID
		}

		_, err := env.drive.AncestorChain(ctx, env.owner, parent)
		require.NoError(t, err)

		deeper := metadatatesting.NewFolder(env.owner, parent, "too-deep")
		require.NoError(t, env.store.PutFolder(ctx, deeper))
		_, err = env.drive.AncestorChain(ctx, env.owner, &deeper.ID)
		assertCode(t, metadata.ErrCorruptHierarchy, err)
	})

	t.Run("DanglingParent", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		orphan := metadatatesting.NewFolder(env.owner, ptr(uuid.New()), "Orphan")
		require.NoError(t, env.store.PutFolder(ctx, orphan))

		_, err := env.drive.AncestorChain(ctx, env.owner, &orphan.ID)
		assertCode(t, metadata.ErrCorruptHierarchy, err)
	})
}

func TestBreadcrumbs(t *testing.T) {
	ctx := testContext()
	env := newTestEnv(t, Config{})
	a := env.mkdir(t, nil, "A")
	b := env.mkdir(t, &a.ID, "B")
	file := env.upload(t, &b.ID, "pic.png", sizedPNG(16))

	crumbs, err := env.drive.Breadcrumbs(ctx, env.owner, metadata.KindFile, file.ID)
	require.NoError(t, err)
	require.Len(t, crumbs, 2)
	assert.Equal(t, a.ID, crumbs[0].ID)
	assert.Equal(t, b.ID, crumbs[1].ID)

	crumbs, err = env.drive.Breadcrumbs(ctx, env.owner, metadata.KindFolder, a.ID)
	require.NoError(t, err)
	assert.Empty(t, crumbs)

	_, err = env.drive.Breadcrumbs(ctx, uuid.New(), metadata.KindFile, file.ID)
	assertCode(t, metadata.ErrNotFound, err)
}

func TestListChildren(t *testing.T) {
	ctx := testContext()
	env := newTestEnv(t, Config{})
	dir := env.mkdir(t, nil, "Dir")

	env.upload(t, &dir.ID, "beta.png", sizedPNG(16))
	env.upload(t, &dir.ID, "Alpha.png", sizedPNG(16))
	env.mkdir(t, &dir.ID, "zeta")
	env.mkdir(t, &dir.ID, "Eta")
	gone := env.mkdir(t, &dir.ID, "Gone")
	require.NoError(t, env.drive.TrashFolder(ctx, env.owner, gone.ID))

	items, err := env.drive.ListChildren(ctx, env.owner, &dir.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Eta", "zeta", "Alpha.png", "beta.png"}, itemNames(items))
	assert.Equal(t, metadata.KindFolder, items[0].Kind)
	assert.Equal(t, metadata.KindFile, items[3].Kind)

	root, err := env.drive.ListChildren(ctx, env.owner, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dir"}, itemNames(root))

	_, err = env.drive.ListChildren(ctx, uuid.New(), &dir.ID)
	assertCode(t, metadata.ErrNotFound, err)
}

func TestGetForeignNodes(t *testing.T) {
	ctx := testContext()
	env := newTestEnv(t, Config{})
	a := env.mkdir(t, nil, "A")
	file := env.upload(t, nil, "a.png", sizedPNG(16))
	stranger := uuid.New()

	_, err := env.drive.GetFolder(ctx, stranger, a.ID)
	assertCode(t, metadata.ErrNotFound, err)
	_, err = env.drive.GetFile(ctx, stranger, file.ID)
	assertCode(t, metadata.ErrNotFound, err)
}
