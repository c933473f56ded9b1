package remote

import (
	"context"
	"fmt"

	"cv-go/internal/config"
	"cv-go/internal/cv"
)

// NewRemoteFromConfig creates a Remote implementation based on the remote config type.
func NewRemoteFromConfig(ctx context.Context, cfg config.RemoteConfig) (cv.Remote, error) {
	switch cfg.Type {
	case "http", "":
		if cfg.URL == "" {
			return nil, fmt.Errorf("http remote requires url to be set")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("http remote requires api_key to be set")
		}
		return NewHTTPRemote(cfg.URL, cfg.HeaderName, cfg.APIKey)
	case "s3":
		return NewS3Remote(ctx, cfg)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem remote requires fs_root to be set")
		}
		return NewFileSystemRemote(cfg.FSRoot)
	case "memory":
		return NewMemoryRemote(), nil
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}
