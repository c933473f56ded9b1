package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCVHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "commit recorded",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tcommit recorded\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "snapshot computed",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tsnapshot computed\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "uploaded",
			attrs:   []slog.Attr{slog.String("path", "docs/file.txt"), slog.Int("size", 42)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tuploaded\tpath=docs/file.txt\tsize=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newCVHandler(&buf, tt.opID)

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestCVHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newCVHandler(&buf, "op-1")

	// Add pre-set attrs
	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "remote")}).(*cvHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "push", 0)
	r.AddAttrs(slog.String("key", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=remote") {
		t.Errorf("expected pre-set attr component=remote, got: %q", got)
	}
	if !strings.Contains(got, "key=abc") {
		t.Errorf("expected record attr key=abc, got: %q", got)
	}
}

func TestCVHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := newCVHandler(&buf, "op-1")
	h.attrs = []slog.Attr{slog.String("a", "1")}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*cvHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestCVHandler_Enabled(t *testing.T) {
	h := &cvHandler{}
	// All levels should be enabled
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !h.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("writes to the log file only", func(t *testing.T) {
		dir := t.TempDir()
		logger, f, err := newLogger(dir, "test-op", nil)
		if err != nil {
			t.Fatalf("newLogger() error = %v", err)
		}
		logger.Info("hello", "k", "v")
		f.Close()

		data, err := os.ReadFile(filepath.Join(dir, "cv.log"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "\ttest-op\thello\tk=v") {
			t.Errorf("log file = %q", data)
		}
	})

	t.Run("mirrors when verbose", func(t *testing.T) {
		dir := t.TempDir()
		var mirror bytes.Buffer
		logger, f, err := newLogger(dir, "op", &mirror)
		if err != nil {
			t.Fatalf("newLogger() error = %v", err)
		}
		defer f.Close()

		logger.Debug("details")
		if !strings.Contains(mirror.String(), "DEBUG\top\tdetails") {
			t.Errorf("mirror = %q", mirror.String())
		}
	})

	t.Run("appends across invocations", func(t *testing.T) {
		dir := t.TempDir()
		for _, id := range []string{"first", "second"} {
			logger, f, err := newLogger(dir, id, nil)
			if err != nil {
				t.Fatal(err)
			}
			logger.Info("run")
			f.Close()
		}
		data, err := os.ReadFile(filepath.Join(dir, "cv.log"))
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.Count(string(data), "\n"); got != 2 {
			t.Errorf("log has %d lines, want 2", got)
		}
	})
}
