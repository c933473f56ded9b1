package cv

import (
	"fmt"
)

// CVService is the repository facade: it combines the log store, the
// working tree and the detector into the operations needed by the CLI.
type CVService struct {
	store  LogStore
	fsmgr  FilesystemManager
	logger Logger
	clock  Clock
	idgen  IDGenerator
}

// NewCVService creates a new CVService with the provided dependencies.
func NewCVService(store LogStore, fsmgr FilesystemManager, logger Logger, clock Clock, idgen IDGenerator) *CVService {
	return &CVService{
		store:  store,
		fsmgr:  fsmgr,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
	}
}

// Snapshot is the result of comparing the working tree with the log.
type Snapshot struct {
	Log     *CommitLog
	Latest  LatestState
	Changes *Changelist
}

// Init creates the control folder and an empty commit log.
func (s *CVService) Init() error {
	exists, err := s.fsmgr.ControlFolderExists()
	if err != nil {
		return fmt.Errorf("checking control folder: %w", err)
	}
	if exists {
		return ErrRepoExists
	}

	if err := s.fsmgr.CreateControlFolder(); err != nil {
		return fmt.Errorf("creating control folder: %w", err)
	}
	if err := s.store.Save(NewCommitLog()); err != nil {
		return fmt.Errorf("saving empty log: %w", err)
	}

	s.logger.Info("repository initialized")
	return nil
}

// Status returns the uncommitted changes of the working tree.
func (s *CVService) Status() (*Changelist, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Changes, nil
}

// List returns the tracked paths in sorted order together with the
// uncommitted changes.
func (s *CVService) List() ([]string, *Changelist, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, nil, err
	}
	return snap.Latest.Tracked(), snap.Changes, nil
}

// Commit records the current changelist as a new commit. When there is
// nothing to commit, confirm decides whether an empty commit is recorded;
// a nil confirm declines.
func (s *CVService) Commit(message string, confirm func() bool) (*Commit, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	if snap.Changes.Empty() && (confirm == nil || !confirm()) {
		return nil, ErrEmptyCommitDeclined
	}

	c := Commit{
		ID:      s.idgen.New(),
		Message: message,
		Time:    s.clock.Now().UTC(),
		Changes: snap.Changes.Changes(),
	}
	snap.Log.Append(c)

	if err := s.store.Save(snap.Log); err != nil {
		return nil, fmt.Errorf("saving log: %w", err)
	}

	s.logger.Info("commit recorded", "id", c.ID, "changes", len(c.Changes))
	return &c, nil
}

// Log returns all commits, oldest first.
func (s *CVService) Log() ([]Commit, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	log, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading log: %w", err)
	}
	return log.Commits, nil
}

func (s *CVService) requireRepo() error {
	exists, err := s.fsmgr.ControlFolderExists()
	if err != nil {
		return fmt.Errorf("checking control folder: %w", err)
	}
	if !exists {
		return ErrNoRepo
	}
	return nil
}

// snapshot loads and replays the log, scans the tree and runs the detector.
func (s *CVService) snapshot() (*Snapshot, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}

	log, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading log: %w", err)
	}

	latest, err := Replay(log.Commits)
	if err != nil {
		return nil, err
	}

	actual, err := s.fsmgr.Scan()
	if err != nil {
		return nil, fmt.Errorf("scanning working tree: %w", err)
	}

	changes, err := DetectChanges(latest, actual, log.LastCommitTime(), s.fsmgr, s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("detecting changes: %w", err)
	}

	s.logger.Debug("snapshot computed",
		"tracked", len(latest), "found", len(actual), "changes", changes.Len())

	return &Snapshot{Log: log, Latest: latest, Changes: changes}, nil
}
