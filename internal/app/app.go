package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cv-go/internal/config"
	"cv-go/internal/cv"
	"cv-go/internal/encryption"
	"cv-go/internal/fs"
	"cv-go/internal/logstore"
	"cv-go/internal/remote"
)

// CVApp is the application layer between the CLI and CVService.
// It constructs all dependencies from config for the working tree at root
// and closes the log store and log file on Close.
type CVApp struct {
	cfg       *config.Config
	layout    cv.Layout
	store     cv.LogStore
	encryptor cv.Encryptor
	service   *cv.CVService
	op        *Operation
	logger    *slogAdapter
	logFile   *os.File
}

// Options tune a CVApp beyond the config file.
type Options struct {
	// Verbose mirrors log output to stderr.
	Verbose bool
	// Stderr receives mirrored log output; defaults to os.Stderr.
	Stderr io.Writer
}

// NewCVApp creates a fully wired CVApp for the working tree at root.
// operation identifies the CLI command being run (e.g. "Commit", "Push").
// The caller must call Close when done.
func NewCVApp(cfg *config.Config, root, operation string, opts Options) (*CVApp, error) {
	layout := cv.Layout{Root: root, ControlFolder: cfg.ControlFolder, IgnoreFile: cfg.IgnoreFile}
	fsmgr := fs.NewOSFilesystemManager(layout, cfg.Filesystem.Ignore)

	store, err := logstore.NewLogStoreFromConfig(cfg.Storage, layout)
	if err != nil {
		return nil, fmt.Errorf("creating log store: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	op := NewOperation(operation, root, time.Now())
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	var mirror io.Writer
	if opts.Verbose {
		mirror = stderr
	}
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, mirror)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	svc := cv.NewCVService(store, fsmgr, adapter, cv.RealClock{}, cv.UUIDGenerator{})
	adapter.Debug("operation started", "operation", op.Name, "root", root)

	return &CVApp{
		cfg:       cfg,
		layout:    layout,
		store:     store,
		encryptor: enc,
		service:   svc,
		op:        op,
		logger:    adapter,
		logFile:   logFile,
	}, nil
}

// track records the outcome of a mutating operation.
func (a *CVApp) track(err error) error {
	a.op.Finish(err)
	return err
}

// Root returns the working tree root.
func (a *CVApp) Root() string {
	return a.layout.Root
}

// Init creates a repository at the root.
func (a *CVApp) Init() error {
	return a.track(a.service.Init())
}

// Status returns the uncommitted changes.
func (a *CVApp) Status() (*cv.Changelist, error) {
	return a.service.Status()
}

// List returns the tracked paths and the uncommitted changes.
func (a *CVApp) List() ([]string, *cv.Changelist, error) {
	return a.service.List()
}

// Commit records the current changes. confirm is consulted for empty commits.
func (a *CVApp) Commit(message string, confirm func() bool) (*cv.Commit, error) {
	a.op.Parameters = message
	c, err := a.service.Commit(message, confirm)
	return c, a.track(err)
}

// Log returns all commits, oldest first.
func (a *CVApp) Log() ([]cv.Commit, error) {
	return a.service.Log()
}

// RemoteOverride replaces the configured remote with an HTTP server given
// on the command line.
type RemoteOverride struct {
	URL    string
	APIKey string
}

// Push uploads the committed tree to the configured remote, or to override
// when it is non-nil.
func (a *CVApp) Push(ctx context.Context, override *RemoteOverride) (*cv.TransferResult, error) {
	t, err := a.transfer(ctx, override)
	if err != nil {
		return nil, a.track(err)
	}
	res, err := a.service.Push(ctx, t)
	return res, a.track(err)
}

// Pull updates the working tree from the configured remote, or from
// override when it is non-nil.
func (a *CVApp) Pull(ctx context.Context, override *RemoteOverride) (*cv.TransferResult, error) {
	t, err := a.transfer(ctx, override)
	if err != nil {
		return nil, a.track(err)
	}
	res, err := a.service.Pull(ctx, t)
	return res, a.track(err)
}

func (a *CVApp) transfer(ctx context.Context, override *RemoteOverride) (cv.Transfer, error) {
	rcfg := a.cfg.Remote
	if override != nil {
		rcfg = config.RemoteConfig{
			Type:       "http",
			URL:        override.URL,
			APIKey:     override.APIKey,
			HeaderName: a.cfg.Remote.HeaderName,
		}
		a.op.Parameters = override.URL
	}

	r, err := remote.NewRemoteFromConfig(ctx, rcfg)
	if err != nil {
		return cv.Transfer{}, fmt.Errorf("creating remote: %w", err)
	}
	if !a.encryptor.IsConfigured() {
		return cv.Transfer{}, fmt.Errorf("encryption is not configured: run 'cv config keygen'")
	}

	return cv.Transfer{
		Remote:    r,
		Encryptor: a.encryptor,
		Codec:     logstore.YAMLCodec{},
		LogKey:    a.layout.LogKey(),
	}, nil
}

// Close logs the operation outcome and closes all resources.
func (a *CVApp) Close() error {
	var firstErr error

	if a.op.Mutating() {
		a.logger.Info("operation finished", a.op.LogArgs()...)
	}

	if err := closeStore(a.store); err != nil {
		firstErr = fmt.Errorf("closing log store: %w", err)
	}

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}

func closeStore(s cv.LogStore) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Keygen creates the encryption identity configured in cfg and returns its
// public key, if the encryptor has one.
func Keygen(cfg *config.Config) (string, error) {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return "", fmt.Errorf("creating encryptor: %w", err)
	}
	age, ok := enc.(*encryption.AgeEncryptor)
	if !ok {
		return "", fmt.Errorf("encryption type %q does not use keys", cfg.Encryption.Type)
	}
	if err := age.Setup(); err != nil {
		return "", err
	}
	return age.Recipient()
}
