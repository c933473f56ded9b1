package cv

import "errors"

// Expected conditions. The CLI reports these and exits normally.
var (
	// ErrUsage indicates wrong command arguments.
	ErrUsage = errors.New("usage error")

	// ErrNoRepo indicates there is no control folder at the working root.
	ErrNoRepo = errors.New("no repo exists at current location")

	// ErrRepoExists indicates init was run inside an existing repo.
	ErrRepoExists = errors.New("a repo already exists at this location")

	// ErrEmptyCommitDeclined indicates an empty commit was not confirmed.
	ErrEmptyCommitDeclined = errors.New("empty commit aborted")

	// ErrDirtyWorkingTree indicates a transfer was attempted with uncommitted changes.
	ErrDirtyWorkingTree = errors.New("working tree has uncommitted changes")

	// ErrRemoteDiverged indicates the local and remote logs do not share history.
	ErrRemoteDiverged = errors.New("local and remote history have diverged")

	// ErrRemoteEmpty indicates the remote holds no commit log.
	ErrRemoteEmpty = errors.New("remote has no commit log")
)

// Fatal conditions.
var (
	// ErrCorruptLog indicates the commit log is missing, unreadable or inconsistent.
	ErrCorruptLog = errors.New("commit log is corrupt")

	// ErrNotFound indicates a remote object does not exist.
	ErrNotFound = errors.New("not found")
)
