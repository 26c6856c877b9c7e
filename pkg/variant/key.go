// Package variant renders and caches resized renditions of stored images.
//
// A variant is a pure function of the canonical bytes and a Key. Rendered
// bytes are memoized in a dedicated content store and never expire: files
// are immutable once stored, and renames do not touch the key.
package variant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// ErrInvalidDimensions is returned for a zero width or height.
var ErrInvalidDimensions = errors.New("variant dimensions must be positive")

// Key identifies one rendition of a file.
type Key struct {
	FileID uuid.UUID
	Width  uint16
	Height uint16

	// Fill crops to cover the box instead of fitting inside it
	Fill bool
}

// Validate rejects zero-sized boxes.
func (k Key) Validate() error {
	if k.Width == 0 || k.Height == 0 {
		return fmt.Errorf("%dx%d: %w", k.Width, k.Height, ErrInvalidDimensions)
	}
	return nil
}

func (k Key) suffix() string {
	s := fmt.Sprintf("_%dx%d", k.Width, k.Height)
	if k.Fill {
		s += "_fill"
	}
	return s
}

// ContentID returns the cache blob id: "<file-id>_<w>x<h>[_fill].<ext>".
func (k Key) ContentID(ext string) metadata.ContentID {
	return metadata.ContentID(k.FileID.String() + k.suffix() + "." + ext)
}

func (k Key) String() string {
	return k.FileID.String() + k.suffix()
}

// Prefix is the cache id prefix shared by every variant of fileID.
func Prefix(fileID uuid.UUID) string {
	return fileID.String() + "_"
}

// Filename is the download name of a variant: the stored name up to its
// first dot, the box, and the file's extension.
//
// Example: Filename("beach.day.png", "png", 200, 100, true) = "beach_200x100_fill.png"
func Filename(name, ext string, width, height uint16, fill bool) string {
	base, _, _ := strings.Cut(name, ".")
	k := Key{Width: width, Height: height, Fill: fill}
	return base + k.suffix() + "." + ext
}
