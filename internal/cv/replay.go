package cv

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// FileRecord is the last known state of a tracked path.
type FileRecord struct {
	UpdateTime   time.Time
	CreationTime time.Time
}

// Equal reports whether both timestamps match.
func (r FileRecord) Equal(o FileRecord) bool {
	return r.UpdateTime.Equal(o.UpdateTime) && r.CreationTime.Equal(o.CreationTime)
}

// LatestState maps tracked paths to their last known record.
type LatestState map[string]FileRecord

// Clone returns an independent copy of the state.
func (s LatestState) Clone() LatestState {
	return maps.Clone(s)
}

// Tracked returns the tracked paths in sorted order.
func (s LatestState) Tracked() []string {
	return slices.Sorted(maps.Keys(s))
}

// Replay folds the commits, in order, into the latest state. It returns an
// error wrapping ErrCorruptLog when a change refers to an untracked path.
func Replay(commits []Commit) (LatestState, error) {
	state := LatestState{}
	for i := range commits {
		if err := Apply(state, commits[i]); err != nil {
			return nil, fmt.Errorf("replaying commit %d: %w", i+1, err)
		}
	}
	return state, nil
}

// Apply applies the changes of a single commit to state in place.
func Apply(state LatestState, c Commit) error {
	for _, change := range c.Changes {
		switch ch := change.(type) {
		case NewFile:
			state[ch.Path] = FileRecord{UpdateTime: ch.UpdateTime, CreationTime: ch.CreatedAt}
		case RecreatedFile:
			state[ch.Path] = FileRecord{UpdateTime: ch.UpdateTime, CreationTime: ch.CreatedAt}
		case UpdatedFile:
			rec, ok := state[ch.Path]
			if !ok {
				return fmt.Errorf("%w: update of untracked path %q", ErrCorruptLog, ch.Path)
			}
			rec.UpdateTime = ch.UpdateTime
			state[ch.Path] = rec
		case DeletedFile:
			delete(state, ch.Path)
		case MovedFile:
			rec, ok := state[ch.OldPath]
			if !ok {
				return fmt.Errorf("%w: move of untracked path %q", ErrCorruptLog, ch.OldPath)
			}
			delete(state, ch.OldPath)
			state[ch.NewPath] = FileRecord{UpdateTime: ch.UpdateTime, CreationTime: rec.CreationTime}
		default:
			return fmt.Errorf("%w: unknown change type %T", ErrCorruptLog, change)
		}
	}
	return nil
}
