package cv

import (
	"io"
	"time"
)

// Layout names the pieces of a working tree. It is built once from
// configuration and the working directory.
type Layout struct {
	Root          string // absolute path of the working tree
	ControlFolder string // name of the control folder directly under Root
	IgnoreFile    string // name of the ignore file directly under Root
}

// LogKey is the remote key the commit log is stored under.
func (l Layout) LogKey() string {
	return l.ControlFolder + "/versions"
}

// FilesystemManager gives the service access to one working tree. All paths
// are relative to the root and use forward slashes.
type FilesystemManager interface {
	FileInspector

	// ControlFolderExists reports whether the root holds a control folder.
	ControlFolderExists() (bool, error)

	// CreateControlFolder creates the control folder.
	CreateControlFolder() error

	// Scan walks the tree and returns every regular, non-ignored file outside
	// the root control folder with its modification time.
	Scan() (ActualState, error)

	// Open opens a tracked file for reading.
	Open(relPath string) (io.ReadCloser, error)

	// WriteFile replaces relPath with the content of r, creating parent
	// directories, and sets its modification time to modTime.
	WriteFile(relPath string, r io.Reader, modTime time.Time) error

	// Remove deletes relPath. Removing a missing file is not an error.
	Remove(relPath string) error
}
