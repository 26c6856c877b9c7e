//go:build !unix

package fs

import (
	"context"

	"github.com/marmos91/dittodrive/pkg/content"
)

// AvailableBytes is not implemented on this platform; uploads are then
// bounded by quota and the per-file limit only.
func (r *FSContentStore) AvailableBytes(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return 0, content.ErrNotSupported
}
