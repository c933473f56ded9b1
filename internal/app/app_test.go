package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cv-go/internal/config"
	"cv-go/internal/cv"
)

func newTestConfig(t *testing.T, remoteRoot string) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Remote = config.RemoteConfig{Type: "filesystem", FSRoot: remoteRoot, HeaderName: config.DefaultHeaderName}
	cfg.Encryption = config.EncryptionConfig{Type: "test"}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, root, operation string) *CVApp {
	t.Helper()
	a, err := NewCVApp(cfg, root, operation, Options{})
	if err != nil {
		t.Fatalf("NewCVApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func writeFile(t *testing.T, root, rel, content string, mtime time.Time) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(p, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestCVApp_NoRepo(t *testing.T) {
	cfg := newTestConfig(t, t.TempDir())
	a := newTestApp(t, cfg, t.TempDir(), "Status")

	if _, err := a.Status(); !errors.Is(err, cv.ErrNoRepo) {
		t.Errorf("Status() error = %v, want ErrNoRepo", err)
	}
	if _, err := a.Log(); !errors.Is(err, cv.ErrNoRepo) {
		t.Errorf("Log() error = %v, want ErrNoRepo", err)
	}
}

func TestCVApp_InitCommitStatus(t *testing.T) {
	for _, storage := range []string{"yaml", "sqlite"} {
		t.Run(storage, func(t *testing.T) {
			root := t.TempDir()
			cfg := newTestConfig(t, t.TempDir())
			cfg.Storage.Type = storage
			past := time.Now().Add(-time.Hour).Truncate(time.Second)

			a := newTestApp(t, cfg, root, "Init")
			if err := a.Init(); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			if err := a.Init(); !errors.Is(err, cv.ErrRepoExists) {
				t.Fatalf("second Init() error = %v, want ErrRepoExists", err)
			}

			writeFile(t, root, "a.txt", "alpha", past)
			writeFile(t, root, "src/b.txt", "beta", past)
			writeFile(t, root, "build/out.bin", "junk", past)
			writeFile(t, root, ".cvignore", "build/\n", past)

			changes, err := a.Status()
			if err != nil {
				t.Fatalf("Status() error = %v", err)
			}
			var newPaths []string
			for _, c := range changes.New {
				newPaths = append(newPaths, c.Target())
			}
			if strings.Join(newPaths, ",") != ".cvignore,a.txt,src/b.txt" {
				t.Errorf("new files = %v", newPaths)
			}

			c, err := a.Commit("first", nil)
			if err != nil {
				t.Fatalf("Commit() error = %v", err)
			}
			if len(c.Changes) != 3 {
				t.Errorf("commit has %d changes, want 3", len(c.Changes))
			}

			if _, err := a.Commit("again", func() bool { return false }); !errors.Is(err, cv.ErrEmptyCommitDeclined) {
				t.Errorf("empty Commit() error = %v, want ErrEmptyCommitDeclined", err)
			}

			writeFile(t, root, "a.txt", "alpha v2", time.Now().Add(time.Hour))
			changes, err = a.Status()
			if err != nil {
				t.Fatal(err)
			}
			if len(changes.Updated) != 1 || changes.Updated[0].Target() != "a.txt" {
				t.Errorf("Updated = %v, want a.txt", changes.Updated)
			}

			tracked, _, err := a.List()
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(tracked, ",") != ".cvignore,a.txt,src/b.txt" {
				t.Errorf("tracked = %v", tracked)
			}

			commits, err := a.Log()
			if err != nil {
				t.Fatal(err)
			}
			if len(commits) != 1 || commits[0].Message != "first" {
				t.Errorf("Log() = %v", commits)
			}
		})
	}
}

func TestCVApp_PushPull(t *testing.T) {
	ctx := context.Background()
	remoteRoot := t.TempDir()
	cfg := newTestConfig(t, remoteRoot)
	past := time.Now().Add(-time.Hour).Truncate(time.Second)

	origin := t.TempDir()
	a := newTestApp(t, cfg, origin, "Push")
	if err := a.Init(); err != nil {
		t.Fatal(err)
	}
	writeFile(t, origin, "a.txt", "alpha", past)
	writeFile(t, origin, "docs/b.md", "beta", past)
	if _, err := a.Commit("first", nil); err != nil {
		t.Fatal(err)
	}

	writeFile(t, origin, "dirty.txt", "x", past)
	if _, err := a.Push(ctx, nil); !errors.Is(err, cv.ErrDirtyWorkingTree) {
		t.Fatalf("Push() with dirty tree error = %v, want ErrDirtyWorkingTree", err)
	}
	if err := os.Remove(filepath.Join(origin, "dirty.txt")); err != nil {
		t.Fatal(err)
	}

	res, err := a.Push(ctx, nil)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if res.Transferred != 2 || res.Removed != 0 {
		t.Errorf("Push() = %+v, want 2 transferred", res)
	}

	stored, err := os.ReadFile(filepath.Join(remoteRoot, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(stored), "CVENC") || !strings.HasSuffix(string(stored), "alpha") {
		t.Errorf("remote a.txt = %q, want encrypted alpha", stored)
	}
	if _, err := os.Stat(filepath.Join(remoteRoot, ".cv", "versions")); err != nil {
		t.Errorf("remote log missing: %v", err)
	}

	clone := t.TempDir()
	b := newTestApp(t, cfg, clone, "Pull")
	res, err = b.Pull(ctx, nil)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if res.Transferred != 2 {
		t.Errorf("Pull() = %+v, want 2 transferred", res)
	}

	got, err := os.ReadFile(filepath.Join(clone, "docs", "b.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "beta" {
		t.Errorf("pulled docs/b.md = %q, want %q", got, "beta")
	}

	changes, err := b.Status()
	if err != nil {
		t.Fatal(err)
	}
	if !changes.Empty() {
		t.Errorf("clone has changes after pull: %v", changes.Changes())
	}

	// A second push of an unchanged tree transfers nothing.
	res, err = a.Push(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Transferred != 0 {
		t.Errorf("second Push() transferred %d files, want 0", res.Transferred)
	}
}

func TestCVApp_PullEmptyRemote(t *testing.T) {
	cfg := newTestConfig(t, t.TempDir())
	a := newTestApp(t, cfg, t.TempDir(), "Pull")

	if _, err := a.Pull(context.Background(), nil); !errors.Is(err, cv.ErrRemoteEmpty) {
		t.Errorf("Pull() error = %v, want ErrRemoteEmpty", err)
	}
}

func TestCVApp_Close_LogsOperation(t *testing.T) {
	cfg := newTestConfig(t, t.TempDir())
	root := t.TempDir()

	a, err := NewCVApp(cfg, root, "Init", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Init(); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, "cv.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "operation finished\toperation=Init\tstatus=success") {
		t.Errorf("log file = %q", data)
	}
}

func TestKeygen(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())

	if _, err := Keygen(cfg); err == nil {
		t.Error("Keygen() with encryption type none expected error")
	}

	cfg.Encryption.Type = "age"
	recipient, err := Keygen(cfg)
	if err != nil {
		t.Fatalf("Keygen() error = %v", err)
	}
	if !strings.HasPrefix(recipient, "age1") {
		t.Errorf("recipient = %q", recipient)
	}
	if _, err := Keygen(cfg); err == nil {
		t.Error("second Keygen() expected error")
	}
}
