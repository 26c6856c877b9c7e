//go:build unix

package fs

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// AvailableBytes reports the bytes available to unprivileged users on the
// volume holding the base directory.
func (r *FSContentStore) AvailableBytes(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(r.basePath, &stat); err != nil {
		return 0, fmt.Errorf("failed to stat content volume: %w", err)
	}

	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
