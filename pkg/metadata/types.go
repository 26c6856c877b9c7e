// Package metadata defines the node records of a drive (folders, files and
// download keys), the CRUD store contract that persists them, and the error
// and validation types shared by every layer above the store.
package metadata

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Visibility
// ============================================================================

// Visibility controls who may see a node. Values are totally ordered from
// strictest to most permissive, so a child may only match or tighten the
// visibility of its parent.
type Visibility int

const (
	VisibilityPrivate Visibility = iota
	VisibilityFollowers
	VisibilityUsers
	VisibilityPublic
)

var visibilityNames = map[Visibility]string{
	VisibilityPrivate:   "private",
	VisibilityFollowers: "followers",
	VisibilityUsers:     "users",
	VisibilityPublic:    "public",
}

func (v Visibility) String() string {
	if name, ok := visibilityNames[v]; ok {
		return name
	}
	return fmt.Sprintf("visibility(%d)", int(v))
}

// Valid reports whether v is one of the known visibility levels.
func (v Visibility) Valid() bool {
	_, ok := visibilityNames[v]
	return ok
}

// PermittedUnder reports whether a node with visibility v may live inside a
// folder whose visibility is parent.
func (v Visibility) PermittedUnder(parent Visibility) bool {
	return v <= parent
}

// ParseVisibility converts a case-insensitive name into a Visibility.
func ParseVisibility(name string) (Visibility, error) {
	for v, n := range visibilityNames {
		if strings.EqualFold(n, name) {
			return v, nil
		}
	}
	return VisibilityPrivate, fmt.Errorf("unknown visibility %q", name)
}

// MarshalText stores visibility by name so persisted records stay readable.
func (v Visibility) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("invalid visibility %d", int(v))
	}
	return []byte(v.String()), nil
}

func (v *Visibility) UnmarshalText(text []byte) error {
	parsed, err := ParseVisibility(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ============================================================================
// Node records
// ============================================================================

// Kind distinguishes the two node types that share a folder's namespace.
type Kind int

const (
	KindFolder Kind = iota
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// ContentID identifies a blob inside a content store.
type ContentID string

// Folder is a directory node. ParentID is nil for folders at the owner's root.
type Folder struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
	TrashedAt  *time.Time `json:"trashed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// File is a stored upload. Its bytes live in the content store under
// ContentID(), which is derived from the record id and never from the
// checksum.
type File struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
	MediaType  string     `json:"media_type"`
	ByteSize   int64      `json:"byte_size"`
	Checksum   string     `json:"checksum"`
	TrashedAt  *time.Time `json:"trashed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// DownloadKey is a short-lived token that stands in for a file id in
// download links.
type DownloadKey struct {
	ID        uuid.UUID `json:"id"`
	FileID    uuid.UUID `json:"file_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the key is older than ttl at instant now.
func (k *DownloadKey) Expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(k.CreatedAt.Add(ttl))
}

// Extension returns the file extension of the file's media type, without
// the leading dot.
func (f *File) Extension() string {
	return ExtensionFor(f.MediaType)
}

// ContentID returns the canonical blob id: "<id>.<ext>".
func (f *File) ContentID() ContentID {
	return ContentID(f.ID.String() + "." + f.Extension())
}

// Clone returns a deep copy so stores never share pointers with callers.
func (f *Folder) Clone() *Folder {
	c := *f
	c.ParentID = cloneUUID(f.ParentID)
	c.TrashedAt = cloneTime(f.TrashedAt)
	return &c
}

func (f *File) Clone() *File {
	c := *f
	c.ParentID = cloneUUID(f.ParentID)
	c.TrashedAt = cloneTime(f.TrashedAt)
	return &c
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SameParent compares two optional parent ids. Two nils are equal (root).
func SameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ============================================================================
// Node capability and tagged item
// ============================================================================

// Node is the behavior shared by folders and files, so hierarchy and
// lifecycle code can treat both uniformly.
type Node interface {
	NodeID() uuid.UUID
	Owner() uuid.UUID
	Parent() *uuid.UUID
	NodeName() string
	NodeVisibility() Visibility
	Trashed() bool
	Kind() Kind
}

func (f *Folder) NodeID() uuid.UUID          { return f.ID }
func (f *Folder) Owner() uuid.UUID           { return f.OwnerID }
func (f *Folder) Parent() *uuid.UUID         { return f.ParentID }
func (f *Folder) NodeName() string           { return f.Name }
func (f *Folder) NodeVisibility() Visibility { return f.Visibility }
func (f *Folder) Trashed() bool              { return f.TrashedAt != nil }
func (f *Folder) Kind() Kind                 { return KindFolder }

func (f *File) NodeID() uuid.UUID          { return f.ID }
func (f *File) Owner() uuid.UUID           { return f.OwnerID }
func (f *File) Parent() *uuid.UUID         { return f.ParentID }
func (f *File) NodeName() string           { return f.Name }
func (f *File) NodeVisibility() Visibility { return f.Visibility }
func (f *File) Trashed() bool              { return f.TrashedAt != nil }
func (f *File) Kind() Kind                 { return KindFile }

// Item is either a folder or a file. Exactly one of Folder and File is set,
// matching Kind.
type Item struct {
	Kind   Kind    `json:"kind"`
	Folder *Folder `json:"folder,omitempty"`
	File   *File   `json:"file,omitempty"`
}

func FolderItem(f *Folder) Item { return Item{Kind: KindFolder, Folder: f} }
func FileItem(f *File) Item     { return Item{Kind: KindFile, File: f} }

// Node returns the populated side of the item.
func (i Item) Node() Node {
	if i.Kind == KindFolder {
		return i.Folder
	}
	return i.File
}

// ============================================================================
// Media types
// ============================================================================

// Allowed upload formats, keyed by media type.
var allowedMediaTypes = map[string]string{
	"image/gif":  "gif",
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// IsAllowedMediaType reports whether uploads of mediaType are accepted.
func IsAllowedMediaType(mediaType string) bool {
	_, ok := allowedMediaTypes[mediaType]
	return ok
}

// ExtensionFor returns the storage extension for an allowed media type, or
// "bin" for anything else.
func ExtensionFor(mediaType string) string {
	if ext, ok := allowedMediaTypes[mediaType]; ok {
		return ext
	}
	return "bin"
}
