package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the client configuration for cv.
type Config struct {
	ControlFolder string           `toml:"control_folder"`
	IgnoreFile    string           `toml:"ignore_file"`
	LogDir        string           `toml:"log_dir"`
	Storage       StorageConfig    `toml:"storage"`
	Remote        RemoteConfig     `toml:"remote"`
	Encryption    EncryptionConfig `toml:"encryption"`
	Filesystem    FilesystemConfig `toml:"filesystem"`
}

// StorageConfig selects how the commit log is persisted inside the control folder.
type StorageConfig struct {
	Type string `toml:"type"` // "yaml" (default), "sqlite" or "memory"
}

// RemoteConfig represents configuration for the remote used by push and pull.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "http", "s3", "filesystem" or "memory"

	// HTTP-specific fields (only used when Type == "http")
	URL        string `toml:"url,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	HeaderName string `toml:"header_name,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	// Static credentials; the default AWS credential chain is used when empty.
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// EncryptionConfig selects how blobs are encrypted before they reach a remote.
type EncryptionConfig struct {
	Type         string `toml:"type"` // "none" (default), "age" or "test"
	IdentityPath string `toml:"identity_path,omitempty"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

const (
	DefaultControlFolder = ".cv"
	DefaultIgnoreFile    = ".cvignore"
	DefaultHeaderName    = "X-Api-Key"
)

// NewConfig creates a Config with default values rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		ControlFolder: DefaultControlFolder,
		IgnoreFile:    DefaultIgnoreFile,
		LogDir:        filepath.Join(baseDir, "log"),
		Storage:       StorageConfig{Type: "yaml"},
		Remote:        RemoteConfig{Type: "http", HeaderName: DefaultHeaderName},
		Encryption: EncryptionConfig{
			Type:         "none",
			IdentityPath: filepath.Join(baseDir, "keys", "cv.key"),
		},
	}
}

// applyDefaults fills fields left empty by a partial config file.
func (c *Config) applyDefaults(baseDir string) {
	d := NewConfig(baseDir)
	if c.ControlFolder == "" {
		c.ControlFolder = d.ControlFolder
	}
	if c.IgnoreFile == "" {
		c.IgnoreFile = d.IgnoreFile
	}
	if c.LogDir == "" {
		c.LogDir = d.LogDir
	}
	if c.Storage.Type == "" {
		c.Storage.Type = d.Storage.Type
	}
	if c.Remote.Type == "" {
		c.Remote.Type = d.Remote.Type
	}
	if c.Remote.HeaderName == "" {
		c.Remote.HeaderName = d.Remote.HeaderName
	}
	if c.Encryption.Type == "" {
		c.Encryption.Type = d.Encryption.Type
	}
	if c.Encryption.IdentityPath == "" {
		c.Encryption.IdentityPath = d.Encryption.IdentityPath
	}
}

// Validate checks that the control folder and ignore file are plain names.
func (c *Config) Validate() error {
	for name, v := range map[string]string{"control_folder": c.ControlFolder, "ignore_file": c.IgnoreFile} {
		if v == "" || v == "." || v == ".." || filepath.Base(v) != v {
			return fmt.Errorf("invalid %s %q: must be a single path element", name, v)
		}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config at path and fills in defaults rooted at baseDir.
// A missing file is not an error: the defaults are returned.
func Load(path, baseDir string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}
	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
