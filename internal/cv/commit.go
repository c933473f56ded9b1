package cv

import "time"

// Commit is an immutable batch of changes. Changes are ordered Deleted,
// Updated, Moved, New (see Changelist.Changes).
type Commit struct {
	ID      string
	Message string
	Time    time.Time
	Changes []FileChange
}

// CommitLog is the only persisted artifact of a repository. The current
// state of the tree is always derived by replaying it.
type CommitLog struct {
	Commits []Commit
}

// NewCommitLog returns an empty log.
func NewCommitLog() *CommitLog {
	return &CommitLog{Commits: []Commit{}}
}

// LastCommitTime returns the time of the newest commit, or the zero time when
// the log is empty.
func (l *CommitLog) LastCommitTime() time.Time {
	if len(l.Commits) == 0 {
		return time.Time{}
	}
	return l.Commits[len(l.Commits)-1].Time
}

// Append adds a commit to the end of the log.
func (l *CommitLog) Append(c Commit) {
	l.Commits = append(l.Commits, c)
}

// HasPrefix reports whether the first len(prefix.Commits) commits of l are the
// commits of prefix. Commits are compared by ID, time and message.
func (l *CommitLog) HasPrefix(prefix *CommitLog) bool {
	if len(prefix.Commits) > len(l.Commits) {
		return false
	}
	for i, p := range prefix.Commits {
		c := l.Commits[i]
		if c.ID != p.ID || c.Message != p.Message || !c.Time.Equal(p.Time) {
			return false
		}
	}
	return true
}
