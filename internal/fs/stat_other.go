//go:build !linux && !darwin && !windows

package fs

import "time"

// birthTime is unsupported here; move and recreate detection degrade to
// deleted and new pairs.
func birthTime(string) (time.Time, error) {
	return time.Time{}, nil
}
