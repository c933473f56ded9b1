package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"cv-go/internal/cv"
)

// OSFilesystemManager is the real filesystem implementation of
// cv.FilesystemManager for one working tree.
type OSFilesystemManager struct {
	layout cv.Layout
	ignore []string // patterns evaluated before the ignore file
}

// NewOSFilesystemManager creates a filesystem manager rooted at layout.Root.
// extraIgnore patterns come from configuration and are evaluated before the
// patterns of the ignore file.
func NewOSFilesystemManager(layout cv.Layout, extraIgnore []string) *OSFilesystemManager {
	return &OSFilesystemManager{layout: layout, ignore: extraIgnore}
}

func (m *OSFilesystemManager) abs(relPath string) string {
	return filepath.Join(m.layout.Root, filepath.FromSlash(relPath))
}

func (m *OSFilesystemManager) controlDir() string {
	return filepath.Join(m.layout.Root, m.layout.ControlFolder)
}

// ControlFolderExists reports whether the root holds a control folder.
func (m *OSFilesystemManager) ControlFolderExists() (bool, error) {
	info, err := os.Stat(m.controlDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat control folder: %w", err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("control folder path is not a directory: %s", m.controlDir())
	}
	return true, nil
}

// CreateControlFolder creates the control folder under the root.
func (m *OSFilesystemManager) CreateControlFolder() error {
	return os.MkdirAll(m.controlDir(), 0755)
}

// Matcher builds the ignore matcher from configuration and the ignore file.
func (m *OSFilesystemManager) Matcher() (*IgnoreMatcher, error) {
	lines, err := ParseIgnoreFile(filepath.Join(m.layout.Root, m.layout.IgnoreFile))
	if err != nil {
		return nil, err
	}
	patterns := append(append([]string{}, m.ignore...), lines...)
	return NewIgnoreMatcher(patterns), nil
}

// Scan walks the tree and records the modification time of every regular,
// non-ignored file. Only the control folder directly under the root is
// skipped; folders with the same name deeper in the tree are scanned.
func (m *OSFilesystemManager) Scan() (cv.ActualState, error) {
	matcher, err := m.Matcher()
	if err != nil {
		return nil, err
	}

	root := m.layout.Root
	actual := cv.ActualState{}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if filepath.Dir(p) == filepath.Clean(root) && d.Name() == m.layout.ControlFolder {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", p, err)
		}
		rel = filepath.ToSlash(rel)
		if matcher.Match(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		actual[rel] = info.ModTime().UTC()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return actual, nil
}

// CreationTime returns the birth time of relPath, or the zero time when the
// platform or filesystem does not record one.
func (m *OSFilesystemManager) CreationTime(relPath string) (time.Time, error) {
	t, err := birthTime(m.abs(relPath))
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		return t, nil
	}
	return t.UTC(), nil
}

// Size returns the size of relPath in bytes.
func (m *OSFilesystemManager) Size(relPath string) (int64, error) {
	info, err := os.Stat(m.abs(relPath))
	if err != nil {
		return 0, fmt.Errorf("stat path: %w", err)
	}
	return info.Size(), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(relPath string) (io.ReadCloser, error) {
	return os.Open(m.abs(relPath))
}

// WriteFile writes r to relPath through a temp file and rename, then sets the
// modification time.
func (m *OSFilesystemManager) WriteFile(relPath string, r io.Reader, modTime time.Time) error {
	dest := m.abs(relPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".cv-tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	success = true

	if err := os.Chtimes(dest, modTime, modTime); err != nil {
		return fmt.Errorf("setting modification time: %w", err)
	}
	return nil
}

// Remove deletes relPath; a missing file is not an error.
func (m *OSFilesystemManager) Remove(relPath string) error {
	if err := os.Remove(m.abs(relPath)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Compile-time check that OSFilesystemManager implements cv.FilesystemManager
var _ cv.FilesystemManager = (*OSFilesystemManager)(nil)
