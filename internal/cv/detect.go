package cv

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// ActualState maps root-relative paths found on disk to their modification
// time in UTC.
type ActualState map[string]time.Time

// FileInspector reads the attributes the detector only needs for changed
// paths. A zero creation time means the platform could not report one.
type FileInspector interface {
	CreationTime(relPath string) (time.Time, error)
	Size(relPath string) (int64, error)
}

// Changelist groups the changes between the latest and actual state.
// Recreated files are kept in the New group.
type Changelist struct {
	New     []FileChange
	Updated []FileChange
	Moved   []FileChange
	Deleted []FileChange
}

// Changes returns the changes in commit order: Deleted, Updated, Moved, New.
// A RecreatedFile therefore always follows the DeletedFile for its path.
func (c *Changelist) Changes() []FileChange {
	out := make([]FileChange, 0, c.Len())
	out = append(out, c.Deleted...)
	out = append(out, c.Updated...)
	out = append(out, c.Moved...)
	out = append(out, c.New...)
	return out
}

// Len returns the total number of changes.
func (c *Changelist) Len() int {
	return len(c.New) + len(c.Updated) + len(c.Moved) + len(c.Deleted)
}

// Empty reports whether there is nothing to commit.
func (c *Changelist) Empty() bool {
	return c.Len() == 0
}

// DetectChanges classifies the differences between latest and actual.
//
// lastCommit is the time of the newest commit, or the zero time when there is
// none. A path that is missing from latest is considered a move of a vanished
// tracked file when its creation time is known, earlier than lastCommit, and
// equal to the creation time of an unconsumed latest entry. Tracked paths
// that were not seen on disk are reported as deleted at lastCommit, or at now
// when the log is empty.
//
// latest is not modified.
func DetectChanges(latest LatestState, actual ActualState, lastCommit time.Time, inspector FileInspector, now time.Time) (*Changelist, error) {
	remaining := latest.Clone()
	if remaining == nil {
		remaining = LatestState{}
	}
	cl := &Changelist{}

	for _, path := range slices.Sorted(maps.Keys(actual)) {
		updateTime := actual[path]

		rec, tracked := remaining[path]
		if !tracked {
			ct, err := inspector.CreationTime(path)
			if err != nil {
				return nil, fmt.Errorf("reading creation time of %s: %w", path, err)
			}
			size, err := inspector.Size(path)
			if err != nil {
				return nil, fmt.Errorf("reading size of %s: %w", path, err)
			}

			if oldPath, ok := findMoveSource(remaining, ct, lastCommit); ok {
				delete(remaining, oldPath)
				cl.Moved = append(cl.Moved, MovedFile{
					OldPath:    oldPath,
					NewPath:    path,
					UpdateTime: updateTime,
					Size:       size,
				})
				continue
			}

			cl.New = append(cl.New, NewFile{
				Path:       path,
				CreatedAt:  ct,
				UpdateTime: updateTime,
				Size:       size,
			})
			continue
		}

		delete(remaining, path)
		if !updateTime.After(rec.UpdateTime) {
			continue
		}

		ct, err := inspector.CreationTime(path)
		if err != nil {
			return nil, fmt.Errorf("reading creation time of %s: %w", path, err)
		}
		size, err := inspector.Size(path)
		if err != nil {
			return nil, fmt.Errorf("reading size of %s: %w", path, err)
		}

		if !ct.Equal(rec.CreationTime) {
			cl.Deleted = append(cl.Deleted, DeletedFile{Path: path, UpdateTime: updateTime})
			cl.New = append(cl.New, RecreatedFile{
				Path:       path,
				CreatedAt:  ct,
				UpdateTime: updateTime,
				Size:       size,
			})
			continue
		}

		cl.Updated = append(cl.Updated, UpdatedFile{Path: path, UpdateTime: updateTime, Size: size})
	}

	deletedAt := lastCommit
	if deletedAt.IsZero() {
		deletedAt = now
	}
	for _, path := range remaining.Tracked() {
		cl.Deleted = append(cl.Deleted, DeletedFile{Path: path, UpdateTime: deletedAt})
	}

	return cl, nil
}

// findMoveSource returns the first remaining path, in sorted order, whose
// creation time equals ct. Unknown creation times never match.
func findMoveSource(remaining LatestState, ct, lastCommit time.Time) (string, bool) {
	if ct.IsZero() || !ct.Before(lastCommit) {
		return "", false
	}
	for _, path := range remaining.Tracked() {
		if remaining[path].CreationTime.Equal(ct) {
			return path, true
		}
	}
	return "", false
}
