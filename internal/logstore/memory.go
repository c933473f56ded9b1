package logstore

import (
	"fmt"
	"slices"
	"sync"

	"cv-go/internal/cv"
)

// MemoryStore keeps the commit log in memory. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	log   *cv.CommitLog
	saves int
}

var _ cv.LogStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. Load fails until the first Save,
// like a repository whose log file was never written.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*cv.CommitLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.log == nil {
		return nil, fmt.Errorf("%w: no log saved", cv.ErrCorruptLog)
	}
	return cloneLog(s.log), nil
}

func (s *MemoryStore) Save(log *cv.CommitLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = cloneLog(log)
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// cloneLog copies the commit and change slices. Change values are immutable.
func cloneLog(log *cv.CommitLog) *cv.CommitLog {
	out := &cv.CommitLog{Commits: make([]cv.Commit, len(log.Commits))}
	for i, c := range log.Commits {
		c.Changes = slices.Clone(c.Changes)
		out.Commits[i] = c
	}
	return out
}
