package logstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"cv-go/internal/cv"
)

// logRecord is the YAML form of a commit log. Keys are PascalCase.
type logRecord struct {
	Commits []commitRecord `yaml:"Commits"`
}

type commitRecord struct {
	ID      string         `yaml:"Id,omitempty"`
	Message string         `yaml:"Message"`
	Time    time.Time      `yaml:"Time"`
	Changes []changeRecord `yaml:"Changes"`
}

// changeRecord flattens every FileChange variant. NewPath is only set for
// moves and CreatedAt only for new and recreated files.
type changeRecord struct {
	Type       string    `yaml:"Type"`
	Path       string    `yaml:"Path"`
	NewPath    string    `yaml:"NewPath,omitempty"`
	CreatedAt  time.Time `yaml:"CreatedAt,omitempty"`
	UpdateTime time.Time `yaml:"UpdateTime"`
	Size       int64     `yaml:"Size,omitempty"`
}

const (
	typeNew       = "New"
	typeUpdated   = "Updated"
	typeDeleted   = "Deleted"
	typeMoved     = "Moved"
	typeRecreated = "Recreated"
)

func toRecord(c cv.FileChange) (changeRecord, error) {
	switch ch := c.(type) {
	case cv.NewFile:
		return changeRecord{Type: typeNew, Path: ch.Path, CreatedAt: ch.CreatedAt, UpdateTime: ch.UpdateTime, Size: ch.Size}, nil
	case cv.RecreatedFile:
		return changeRecord{Type: typeRecreated, Path: ch.Path, CreatedAt: ch.CreatedAt, UpdateTime: ch.UpdateTime, Size: ch.Size}, nil
	case cv.UpdatedFile:
		return changeRecord{Type: typeUpdated, Path: ch.Path, UpdateTime: ch.UpdateTime, Size: ch.Size}, nil
	case cv.DeletedFile:
		return changeRecord{Type: typeDeleted, Path: ch.Path, UpdateTime: ch.UpdateTime}, nil
	case cv.MovedFile:
		return changeRecord{Type: typeMoved, Path: ch.OldPath, NewPath: ch.NewPath, UpdateTime: ch.UpdateTime, Size: ch.Size}, nil
	default:
		return changeRecord{}, fmt.Errorf("unknown change type %T", c)
	}
}

func fromRecord(r changeRecord) (cv.FileChange, error) {
	if r.Path == "" {
		return nil, fmt.Errorf("%w: %s change without path", cv.ErrCorruptLog, r.Type)
	}
	switch r.Type {
	case typeNew:
		return cv.NewFile{Path: r.Path, CreatedAt: r.CreatedAt, UpdateTime: r.UpdateTime, Size: r.Size}, nil
	case typeRecreated:
		return cv.RecreatedFile{Path: r.Path, CreatedAt: r.CreatedAt, UpdateTime: r.UpdateTime, Size: r.Size}, nil
	case typeUpdated:
		return cv.UpdatedFile{Path: r.Path, UpdateTime: r.UpdateTime, Size: r.Size}, nil
	case typeDeleted:
		return cv.DeletedFile{Path: r.Path, UpdateTime: r.UpdateTime}, nil
	case typeMoved:
		if r.NewPath == "" {
			return nil, fmt.Errorf("%w: move of %q without destination", cv.ErrCorruptLog, r.Path)
		}
		return cv.MovedFile{OldPath: r.Path, NewPath: r.NewPath, UpdateTime: r.UpdateTime, Size: r.Size}, nil
	default:
		return nil, fmt.Errorf("%w: unknown change type %q", cv.ErrCorruptLog, r.Type)
	}
}

// YAMLCodec encodes commit logs as YAML. It is also the format exchanged
// with remotes.
type YAMLCodec struct{}

var _ cv.LogCodec = YAMLCodec{}

// Encode writes log to w.
func (YAMLCodec) Encode(w io.Writer, log *cv.CommitLog) error {
	rec := logRecord{Commits: make([]commitRecord, 0, len(log.Commits))}
	for _, c := range log.Commits {
		cr := commitRecord{ID: c.ID, Message: c.Message, Time: c.Time, Changes: make([]changeRecord, 0, len(c.Changes))}
		for _, ch := range c.Changes {
			r, err := toRecord(ch)
			if err != nil {
				return err
			}
			cr.Changes = append(cr.Changes, r)
		}
		rec.Commits = append(rec.Commits, cr)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&rec); err != nil {
		return fmt.Errorf("encoding log: %w", err)
	}
	return enc.Close()
}

// Decode reads a log from r. Malformed input yields an error wrapping
// cv.ErrCorruptLog.
func (YAMLCodec) Decode(r io.Reader) (*cv.CommitLog, error) {
	var rec logRecord
	if err := yaml.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", cv.ErrCorruptLog, err)
	}

	log := &cv.CommitLog{Commits: make([]cv.Commit, 0, len(rec.Commits))}
	for _, cr := range rec.Commits {
		c := cv.Commit{ID: cr.ID, Message: cr.Message, Time: cr.Time, Changes: make([]cv.FileChange, 0, len(cr.Changes))}
		for _, r := range cr.Changes {
			ch, err := fromRecord(r)
			if err != nil {
				return nil, err
			}
			c.Changes = append(c.Changes, ch)
		}
		log.Commits = append(log.Commits, c)
	}
	return log, nil
}

// YAMLStore keeps the commit log in a single YAML file.
type YAMLStore struct {
	path  string
	codec YAMLCodec
}

var _ cv.LogStore = (*YAMLStore)(nil)

// NewYAMLStore creates a store for the log file at path.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Load reads the log file. A missing file is reported as corruption.
func (s *YAMLStore) Load() (*cv.CommitLog, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", cv.ErrCorruptLog, s.path)
		}
		return nil, fmt.Errorf("opening log: %w", err)
	}
	defer f.Close()

	log, err := s.codec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return log, nil
}

// Save rewrites the log file through a temp file and rename.
func (s *YAMLStore) Save(log *cv.CommitLog) error {
	dir := filepath.Dir(s.path)
	tmpFile, err := os.CreateTemp(dir, ".versions-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := s.codec.Encode(tmpFile, log); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
