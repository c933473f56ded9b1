package app

import (
	"errors"
	"strings"

	"cv-go/internal/cv"
)

var reported = []struct {
	err error
	msg string
}{
	{cv.ErrNoRepo, "No repo exists at current location"},
	{cv.ErrRepoExists, "A CV repo already exists at this location."},
	{cv.ErrEmptyCommitDeclined, "Commit aborted."},
	{cv.ErrDirtyWorkingTree, "There are uncommitted changes. Commit them before transferring."},
	{cv.ErrRemoteDiverged, "Local and remote histories have diverged."},
	{cv.ErrRemoteEmpty, "The remote has no commits."},
}

// IsReported returns true for expected conditions that are printed as a
// message and end the process normally.
func IsReported(err error) bool {
	if errors.Is(err, cv.ErrUsage) {
		return true
	}
	for _, r := range reported {
		if errors.Is(err, r.err) {
			return true
		}
	}
	return false
}

// Message returns the user-facing text of an error. Usage errors carry their
// own text after the sentinel prefix.
func Message(err error) string {
	for _, r := range reported {
		if errors.Is(err, r.err) {
			return r.msg
		}
	}
	if errors.Is(err, cv.ErrUsage) {
		return strings.TrimPrefix(err.Error(), cv.ErrUsage.Error()+": ")
	}
	return err.Error()
}
