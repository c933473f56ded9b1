package cv

import "io"

// LogStore persists the commit log of one repository.
type LogStore interface {
	// Load returns the stored log. A missing or unreadable log yields an
	// error wrapping ErrCorruptLog.
	Load() (*CommitLog, error)

	// Save replaces the stored log.
	Save(log *CommitLog) error
}

// LogCodec converts a commit log to and from the byte form exchanged with a
// remote.
type LogCodec interface {
	Encode(w io.Writer, log *CommitLog) error
	Decode(r io.Reader) (*CommitLog, error)
}
