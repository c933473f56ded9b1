//go:build linux

package fs

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// birthTime reads the creation time with statx. Kernels or filesystems
// without STATX_BTIME support yield the zero time.
func birthTime(path string) (time.Time, error) {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx)
	if err != nil {
		if errors.Is(err, unix.ENOSYS) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("statx %s: %w", path, err)
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return time.Time{}, nil
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)), nil
}
