package logstore

import (
	"fmt"
	"path/filepath"

	"cv-go/internal/config"
	"cv-go/internal/cv"
)

// NewLogStoreFromConfig creates the commit log store of the repository at
// layout. The file lives in the control folder.
func NewLogStoreFromConfig(cfg config.StorageConfig, layout cv.Layout) (cv.LogStore, error) {
	dir := filepath.Join(layout.Root, layout.ControlFolder)
	switch cfg.Type {
	case "yaml", "":
		return NewYAMLStore(filepath.Join(dir, "versions")), nil
	case "sqlite":
		return NewSQLiteStore(filepath.Join(dir, "versions.db")), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}
