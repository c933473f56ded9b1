package cv

import "time"

// ChangeKind identifies the concrete type behind a FileChange.
type ChangeKind int

const (
	ChangeNew ChangeKind = iota
	ChangeUpdated
	ChangeDeleted
	ChangeMoved
	ChangeRecreated
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeNew:
		return "new"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	case ChangeMoved:
		return "moved"
	case ChangeRecreated:
		return "recreated"
	default:
		return "unknown"
	}
}

// FileChange is one classified change to a tracked path. The concrete types
// are NewFile, UpdatedFile, DeletedFile, MovedFile and RecreatedFile.
type FileChange interface {
	Kind() ChangeKind
	// Target is the path the change leaves behind (the destination for moves).
	Target() string
}

// NewFile records a path that was not tracked before.
type NewFile struct {
	Path       string
	CreatedAt  time.Time
	UpdateTime time.Time
	Size       int64
}

func (c NewFile) Kind() ChangeKind { return ChangeNew }
func (c NewFile) Target() string   { return c.Path }

// UpdatedFile records a newer modification time on a tracked path.
type UpdatedFile struct {
	Path       string
	UpdateTime time.Time
	Size       int64
}

func (c UpdatedFile) Kind() ChangeKind { return ChangeUpdated }
func (c UpdatedFile) Target() string   { return c.Path }

// DeletedFile records that a tracked path is gone.
type DeletedFile struct {
	Path       string
	UpdateTime time.Time
}

func (c DeletedFile) Kind() ChangeKind { return ChangeDeleted }
func (c DeletedFile) Target() string   { return c.Path }

// MovedFile records a tracked file observed under a new path.
type MovedFile struct {
	OldPath    string
	NewPath    string
	UpdateTime time.Time
	Size       int64
}

func (c MovedFile) Kind() ChangeKind { return ChangeMoved }
func (c MovedFile) Target() string   { return c.NewPath }

// RecreatedFile records a new file at a path whose previous incarnation was
// deleted in the same commit. It always follows the matching DeletedFile.
type RecreatedFile struct {
	Path       string
	CreatedAt  time.Time
	UpdateTime time.Time
	Size       int64
}

func (c RecreatedFile) Kind() ChangeKind { return ChangeRecreated }
func (c RecreatedFile) Target() string   { return c.Path }

var (
	_ FileChange = NewFile{}
	_ FileChange = UpdatedFile{}
	_ FileChange = DeletedFile{}
	_ FileChange = MovedFile{}
	_ FileChange = RecreatedFile{}
)
