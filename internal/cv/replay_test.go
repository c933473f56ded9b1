package cv

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func sampleCommits() []Commit {
	return []Commit{
		{ID: "c1", Message: "add", Time: at(10), Changes: []FileChange{
			NewFile{Path: "a.txt", CreatedAt: at(1), UpdateTime: at(2), Size: 1},
			NewFile{Path: "b.txt", CreatedAt: at(3), UpdateTime: at(4), Size: 2},
			NewFile{Path: "c.txt", CreatedAt: at(5), UpdateTime: at(5), Size: 3},
		}},
		{ID: "c2", Message: "edit", Time: at(20), Changes: []FileChange{
			DeletedFile{Path: "c.txt", UpdateTime: at(10)},
			UpdatedFile{Path: "a.txt", UpdateTime: at(15), Size: 4},
			MovedFile{OldPath: "b.txt", NewPath: "docs/b.txt", UpdateTime: at(4), Size: 2},
		}},
		{ID: "c3", Message: "recreate", Time: at(30), Changes: []FileChange{
			DeletedFile{Path: "a.txt", UpdateTime: at(25)},
			RecreatedFile{Path: "a.txt", CreatedAt: at(24), UpdateTime: at(25), Size: 9},
			NewFile{Path: "d.txt", CreatedAt: at(26), UpdateTime: at(26), Size: 1},
		}},
	}
}

func TestReplay(t *testing.T) {
	t.Run("empty log replays to empty state", func(t *testing.T) {
		t.Parallel()
		state, err := Replay(nil)
		if err != nil {
			t.Fatalf("Replay() error = %v", err)
		}
		if len(state) != 0 {
			t.Errorf("len(state) = %d, want 0", len(state))
		}
	})

	t.Run("applies every change kind", func(t *testing.T) {
		t.Parallel()
		state, err := Replay(sampleCommits())
		if err != nil {
			t.Fatalf("Replay() error = %v", err)
		}

		want := LatestState{
			"a.txt":      {UpdateTime: at(25), CreationTime: at(24)},
			"docs/b.txt": {UpdateTime: at(4), CreationTime: at(3)},
			"d.txt":      {UpdateTime: at(26), CreationTime: at(26)},
		}
		if !reflect.DeepEqual(state, want) {
			t.Errorf("Replay() = %v, want %v", state, want)
		}
	})

	t.Run("updated keeps creation time", func(t *testing.T) {
		t.Parallel()
		state, err := Replay(sampleCommits()[:2])
		if err != nil {
			t.Fatalf("Replay() error = %v", err)
		}
		rec := state["a.txt"]
		if !rec.CreationTime.Equal(at(1)) {
			t.Errorf("CreationTime = %v, want %v", rec.CreationTime, at(1))
		}
		if !rec.UpdateTime.Equal(at(15)) {
			t.Errorf("UpdateTime = %v, want %v", rec.UpdateTime, at(15))
		}
	})

	t.Run("is deterministic", func(t *testing.T) {
		t.Parallel()
		first, err := Replay(sampleCommits())
		if err != nil {
			t.Fatal(err)
		}
		second, err := Replay(sampleCommits())
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("two replays differ: %v vs %v", first, second)
		}
	})

	t.Run("update of untracked path is corruption", func(t *testing.T) {
		t.Parallel()
		_, err := Replay([]Commit{{Changes: []FileChange{UpdatedFile{Path: "ghost", UpdateTime: at(1)}}}})
		if !errors.Is(err, ErrCorruptLog) {
			t.Errorf("Replay() error = %v, want ErrCorruptLog", err)
		}
	})

	t.Run("move of untracked path is corruption", func(t *testing.T) {
		t.Parallel()
		_, err := Replay([]Commit{{Changes: []FileChange{MovedFile{OldPath: "ghost", NewPath: "x", UpdateTime: at(1)}}}})
		if !errors.Is(err, ErrCorruptLog) {
			t.Errorf("Replay() error = %v, want ErrCorruptLog", err)
		}
	})

	t.Run("deleting an untracked path is a no-op", func(t *testing.T) {
		t.Parallel()
		state, err := Replay([]Commit{{Changes: []FileChange{DeletedFile{Path: "ghost", UpdateTime: at(1)}}}})
		if err != nil {
			t.Fatalf("Replay() error = %v", err)
		}
		if len(state) != 0 {
			t.Errorf("len(state) = %d, want 0", len(state))
		}
	})
}

// Replaying a prefix and applying one more commit equals replaying the whole log.
func TestReplay_PrefixThenApply(t *testing.T) {
	t.Parallel()
	commits := sampleCommits()

	for n := 0; n < len(commits); n++ {
		prefix, err := Replay(commits[:n])
		if err != nil {
			t.Fatalf("Replay(prefix %d) error = %v", n, err)
		}
		if err := Apply(prefix, commits[n]); err != nil {
			t.Fatalf("Apply(commit %d) error = %v", n, err)
		}

		full, err := Replay(commits[:n+1])
		if err != nil {
			t.Fatalf("Replay(%d) error = %v", n+1, err)
		}
		if !reflect.DeepEqual(prefix, full) {
			t.Errorf("prefix %d + apply = %v, want %v", n, prefix, full)
		}
	}
}

func TestLatestState_Tracked(t *testing.T) {
	t.Parallel()
	state := LatestState{"b": {}, "a/z": {}, "a": {}}
	got := state.Tracked()
	want := []string{"a", "a/z", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tracked() = %v, want %v", got, want)
	}
}

func TestCommitLog(t *testing.T) {
	t.Run("last commit time of empty log is zero", func(t *testing.T) {
		t.Parallel()
		if got := NewCommitLog().LastCommitTime(); !got.IsZero() {
			t.Errorf("LastCommitTime() = %v, want zero", got)
		}
	})

	t.Run("last commit time is the newest commit", func(t *testing.T) {
		t.Parallel()
		log := &CommitLog{Commits: sampleCommits()}
		if got := log.LastCommitTime(); !got.Equal(at(30)) {
			t.Errorf("LastCommitTime() = %v, want %v", got, at(30))
		}
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()
		full := &CommitLog{Commits: sampleCommits()}
		head := &CommitLog{Commits: sampleCommits()[:2]}

		if !full.HasPrefix(head) {
			t.Error("full log does not have its own head as prefix")
		}
		if !full.HasPrefix(NewCommitLog()) {
			t.Error("empty log is not a prefix")
		}
		if head.HasPrefix(full) {
			t.Error("shorter log has longer log as prefix")
		}

		other := &CommitLog{Commits: sampleCommits()[:2]}
		other.Commits[1].ID = "different"
		if full.HasPrefix(other) {
			t.Error("log with a different commit reported as prefix")
		}
	})
}
