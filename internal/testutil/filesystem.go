package testutil

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"cv-go/internal/cv"
	"cv-go/internal/fs"
)

// MockFile represents a file in the mock working tree.
type MockFile struct {
	Content   []byte
	ModTime   time.Time
	BirthTime time.Time // zero means the platform reports no creation time
}

// MockFilesystemManager is an in-memory working tree for testing. Paths are
// root-relative with forward slashes. The ignore file is honored like on a
// real filesystem.
type MockFilesystemManager struct {
	mu            sync.Mutex
	files         map[string]*MockFile
	controlFolder bool
	ignoreFile    string
	clock         cv.Clock
}

// NewMockFilesystemManager creates an empty mock tree. Files written through
// WriteFile get their birth time from clock.
func NewMockFilesystemManager(clock cv.Clock) *MockFilesystemManager {
	return &MockFilesystemManager{
		files:      make(map[string]*MockFile),
		ignoreFile: ".cvignore",
		clock:      clock,
	}
}

// AddFile adds or replaces a file with explicit timestamps.
func (m *MockFilesystemManager) AddFile(path string, content []byte, modTime, birthTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &MockFile{Content: content, ModTime: modTime.UTC(), BirthTime: birthTime}
}

// Touch rewrites a file's content and modification time, keeping its birth time.
func (m *MockFilesystemManager) Touch(path string, content []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	if !ok {
		panic(fmt.Sprintf("touch of missing mock file %s", path))
	}
	f.Content = content
	f.ModTime = modTime.UTC()
}

// Rename moves a file, keeping its timestamps.
func (m *MockFilesystemManager) Rename(oldPath, newPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[oldPath]
	if !ok {
		panic(fmt.Sprintf("rename of missing mock file %s", oldPath))
	}
	delete(m.files, oldPath)
	m.files[newPath] = f
}

// Delete removes a file.
func (m *MockFilesystemManager) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// File returns the file stored at path.
func (m *MockFilesystemManager) File(path string) (*MockFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	return f, ok
}

// Paths returns all stored paths in sorted order.
func (m *MockFilesystemManager) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m *MockFilesystemManager) ControlFolderExists() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controlFolder, nil
}

func (m *MockFilesystemManager) CreateControlFolder() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controlFolder = true
	return nil
}

func (m *MockFilesystemManager) Scan() (cv.ActualState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var patterns []string
	if f, ok := m.files[m.ignoreFile]; ok {
		patterns = strings.Split(string(f.Content), "\n")
	}
	matcher := fs.NewIgnoreMatcher(patterns)

	actual := cv.ActualState{}
	for p, f := range m.files {
		if matcher.Match(p) {
			continue
		}
		actual[p] = f.ModTime
	}
	return actual, nil
}

func (m *MockFilesystemManager) CreationTime(relPath string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[relPath]
	if !ok {
		return time.Time{}, fmt.Errorf("file not found: %s", relPath)
	}
	return f.BirthTime, nil
}

func (m *MockFilesystemManager) Size(relPath string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[relPath]
	if !ok {
		return 0, fmt.Errorf("file not found: %s", relPath)
	}
	return int64(len(f.Content)), nil
}

func (m *MockFilesystemManager) Open(relPath string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[relPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", relPath)
	}
	return io.NopCloser(bytes.NewReader(f.Content)), nil
}

func (m *MockFilesystemManager) WriteFile(relPath string, r io.Reader, modTime time.Time) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}
	birth := m.clock.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[relPath] = &MockFile{Content: data, ModTime: modTime.UTC(), BirthTime: birth}
	return nil
}

func (m *MockFilesystemManager) Remove(relPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, relPath)
	return nil
}

// Compile-time check
var _ cv.FilesystemManager = (*MockFilesystemManager)(nil)
