package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// ServerConfig configures cv-server.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	StorageRoot string `toml:"storage_root"`
	HeaderName  string `toml:"header_name"`
	APIKey      string `toml:"api_key"`
	LogLevel    string `toml:"log_level"`  // debug, info, warn, error
	LogFormat   string `toml:"log_format"` // json or console
}

// NewServerConfig returns the server defaults.
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:        ":8080",
		StorageRoot: "./storage",
		HeaderName:  DefaultHeaderName,
		LogLevel:    "info",
		LogFormat:   "json",
	}
}

// ReadServerConfig decodes the server config at path over the defaults.
// An empty path or missing file yields the defaults.
func ReadServerConfig(path string) (*ServerConfig, error) {
	cfg := NewServerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open server config: %w", err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("reading server config from %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports missing required settings.
func (c *ServerConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("api_key is required")
	}
	if c.StorageRoot == "" {
		return errors.New("storage_root is required")
	}
	if c.HeaderName == "" {
		return errors.New("header_name is required")
	}
	return nil
}
