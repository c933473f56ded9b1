package fs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cv-go/internal/cv"
)

func newTestManager(t *testing.T, extraIgnore ...string) (*OSFilesystemManager, string) {
	t.Helper()
	root := t.TempDir()
	layout := cv.Layout{Root: root, ControlFolder: ".cv", IgnoreFile: ".cvignore"}
	return NewOSFilesystemManager(layout, extraIgnore), root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestOSFilesystemManager_ControlFolder(t *testing.T) {
	t.Parallel()
	m, root := newTestManager(t)

	exists, err := m.ControlFolderExists()
	if err != nil {
		t.Fatalf("ControlFolderExists() error = %v", err)
	}
	if exists {
		t.Fatal("ControlFolderExists() = true before creation")
	}

	if err := m.CreateControlFolder(); err != nil {
		t.Fatalf("CreateControlFolder() error = %v", err)
	}
	exists, err = m.ControlFolderExists()
	if err != nil {
		t.Fatalf("ControlFolderExists() error = %v", err)
	}
	if !exists {
		t.Fatal("ControlFolderExists() = false after creation")
	}
	if info, err := os.Stat(filepath.Join(root, ".cv")); err != nil || !info.IsDir() {
		t.Errorf("control folder not created on disk: %v", err)
	}
}

func TestOSFilesystemManager_ControlFolderIsFile(t *testing.T) {
	t.Parallel()
	m, root := newTestManager(t)
	writeFile(t, root, ".cv", "not a folder")

	if _, err := m.ControlFolderExists(); err == nil {
		t.Error("ControlFolderExists() error = nil, want error for a regular file")
	}
}

func TestOSFilesystemManager_Scan(t *testing.T) {
	t.Parallel()
	m, root := newTestManager(t, "*.bak")

	writeFile(t, root, "a.txt", "a")
	writeFile(t, root, "src/main.go", "package main")
	writeFile(t, root, ".cv/versions", "Commits: []")
	writeFile(t, root, "vendor/.cv/nested.txt", "nested control folder name")
	writeFile(t, root, "debug.log", "ignored by file")
	writeFile(t, root, "old.bak", "ignored by config")
	writeFile(t, root, ".cvignore", "*.log\n")

	actual, err := m.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	want := []string{".cvignore", "a.txt", "src/main.go", "vendor/.cv/nested.txt"}
	if len(actual) != len(want) {
		t.Fatalf("Scan() found %v, want %v", actual, want)
	}
	for _, p := range want {
		if _, ok := actual[p]; !ok {
			t.Errorf("Scan() missing %q", p)
		}
	}
	for p, mtime := range actual {
		if strings.Contains(p, `\`) {
			t.Errorf("path %q is not slash separated", p)
		}
		if mtime.Location() != time.UTC {
			t.Errorf("mtime of %q is not UTC", p)
		}
	}
}

func TestOSFilesystemManager_ScanSkipsSymlinks(t *testing.T) {
	t.Parallel()
	m, root := newTestManager(t)
	writeFile(t, root, "target.txt", "x")
	if err := os.Symlink(filepath.Join(root, "target.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	actual, err := m.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if _, ok := actual["link.txt"]; ok {
		t.Error("Scan() recorded a symlink")
	}
	if _, ok := actual["target.txt"]; !ok {
		t.Error("Scan() missed target.txt")
	}
}

func TestOSFilesystemManager_SizeAndCreationTime(t *testing.T) {
	t.Parallel()
	m, root := newTestManager(t)
	writeFile(t, root, "dir/file.txt", "hello")

	size, err := m.Size("dir/file.txt")
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if size != 5 {
		t.Errorf("Size() = %d, want 5", size)
	}

	ct, err := m.CreationTime("dir/file.txt")
	if err != nil {
		t.Fatalf("CreationTime() error = %v", err)
	}
	if !ct.IsZero() && ct.After(time.Now().Add(time.Minute)) {
		t.Errorf("CreationTime() = %v is in the future", ct)
	}

	if _, err := m.Size("missing.txt"); err == nil {
		t.Error("Size() of missing file error = nil")
	}
}

func TestOSFilesystemManager_WriteOpenRemove(t *testing.T) {
	t.Parallel()
	m, root := newTestManager(t)
	mtime := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	if err := m.WriteFile("deep/dir/out.txt", bytes.NewReader([]byte("payload")), mtime); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(root, "deep", "dir", "out.txt"))
	if err != nil {
		t.Fatalf("stat written file: %v", err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("ModTime = %v, want %v", info.ModTime(), mtime)
	}

	rc, err := m.Open("deep/dir/out.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q, want %q", data, "payload")
	}

	entries, err := os.ReadDir(filepath.Join(root, "deep", "dir"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the written file, found %d entries", len(entries))
	}

	if err := m.Remove("deep/dir/out.txt"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := m.Remove("deep/dir/out.txt"); err != nil {
		t.Errorf("Remove() of missing file error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "deep", "dir", "out.txt")); !os.IsNotExist(err) {
		t.Errorf("file still exists after Remove: %v", err)
	}
}
