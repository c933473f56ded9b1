//go:build windows

package fs

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

func birthTime(path string) (time.Time, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	attrs, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return time.Time{}, nil
	}
	return time.Unix(0, attrs.CreationTime.Nanoseconds()), nil
}
