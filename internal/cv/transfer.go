package cv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// Transfer describes the remote side of a push or pull.
type Transfer struct {
	Remote Remote
	// Encryptor is applied to every blob, the log included. Nil sends plaintext.
	Encryptor Encryptor
	Codec     LogCodec
	// LogKey is the key the commit log is stored under.
	LogKey string
}

// TransferResult counts the work done by a push or pull.
type TransferResult struct {
	Transferred int
	Removed     int
}

// Push uploads the committed state of the working tree to the remote.
// The working tree must be clean and the remote log must be a prefix of the
// local one. Files whose record already matches the remote log are skipped.
func (s *CVService) Push(ctx context.Context, t Transfer) (*TransferResult, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if !snap.Changes.Empty() {
		return nil, ErrDirtyWorkingTree
	}

	remoteLatest := LatestState{}
	remoteLog, err := s.fetchLog(ctx, t)
	if err != nil {
		return nil, err
	}
	if remoteLog != nil {
		if !snap.Log.HasPrefix(remoteLog) {
			return nil, ErrRemoteDiverged
		}
		if remoteLatest, err = Replay(remoteLog.Commits); err != nil {
			return nil, fmt.Errorf("replaying remote log: %w", err)
		}
	}

	keys, err := t.Remote.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing remote: %w", err)
	}
	stored := make(map[string]bool, len(keys))
	for _, k := range keys {
		stored[k] = true
	}

	res := &TransferResult{}
	for _, p := range snap.Latest.Tracked() {
		if rec, ok := remoteLatest[p]; ok && stored[p] && rec.Equal(snap.Latest[p]) {
			continue
		}
		if err := s.upload(ctx, t, p); err != nil {
			return nil, err
		}
		res.Transferred++
	}

	for _, k := range keys {
		if k == t.LogKey {
			continue
		}
		if _, ok := snap.Latest[k]; ok {
			continue
		}
		if err := t.Remote.Delete(ctx, k); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("deleting remote %s: %w", k, err)
		}
		res.Removed++
	}

	var buf bytes.Buffer
	if err := t.Codec.Encode(&buf, snap.Log); err != nil {
		return nil, fmt.Errorf("encoding log: %w", err)
	}
	if err := s.putBlob(ctx, t, t.LogKey, &buf); err != nil {
		return nil, fmt.Errorf("uploading log: %w", err)
	}

	s.logger.Info("push finished", "uploaded", res.Transferred, "deleted", res.Removed)
	return res, nil
}

// Pull makes the working tree match the remote log. Without a local repo
// the remote is cloned into the root. With one, the tree must be clean and
// the local log must be a prefix of the remote one. Nothing in the tree is
// written until every changed file has been downloaded.
func (s *CVService) Pull(ctx context.Context, t Transfer) (*TransferResult, error) {
	exists, err := s.fsmgr.ControlFolderExists()
	if err != nil {
		return nil, fmt.Errorf("checking control folder: %w", err)
	}

	local := NewCommitLog()
	localLatest := LatestState{}
	if exists {
		snap, err := s.snapshot()
		if err != nil {
			return nil, err
		}
		if !snap.Changes.Empty() {
			return nil, ErrDirtyWorkingTree
		}
		local, localLatest = snap.Log, snap.Latest
	}

	remoteLog, err := s.fetchLog(ctx, t)
	if err != nil {
		return nil, err
	}
	if remoteLog == nil {
		return nil, ErrRemoteEmpty
	}
	if !remoteLog.HasPrefix(local) {
		return nil, ErrRemoteDiverged
	}
	remoteLatest, err := Replay(remoteLog.Commits)
	if err != nil {
		return nil, fmt.Errorf("replaying remote log: %w", err)
	}

	type fetched struct {
		path string
		rec  FileRecord
		data *bytes.Buffer
	}
	var pending []fetched
	reserved := path.Dir(t.LogKey) + "/"
	for _, p := range remoteLatest.Tracked() {
		if !filepath.IsLocal(filepath.FromSlash(p)) || strings.HasPrefix(p+"/", reserved) {
			return nil, fmt.Errorf("%w: remote log tracks invalid path %q", ErrCorruptLog, p)
		}
		rec := remoteLatest[p]
		if cur, ok := localLatest[p]; ok && cur.Equal(rec) {
			continue
		}
		data, err := s.download(ctx, t, p)
		if err != nil {
			return nil, err
		}
		pending = append(pending, fetched{path: p, rec: rec, data: data})
	}

	res := &TransferResult{}
	for _, f := range pending {
		if err := s.fsmgr.WriteFile(f.path, f.data, f.rec.UpdateTime); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.path, err)
		}
		res.Transferred++
	}

	for _, p := range localLatest.Tracked() {
		if _, ok := remoteLatest[p]; ok {
			continue
		}
		if err := s.fsmgr.Remove(p); err != nil {
			return nil, fmt.Errorf("removing %s: %w", p, err)
		}
		res.Removed++
	}

	if !exists {
		if err := s.fsmgr.CreateControlFolder(); err != nil {
			return nil, fmt.Errorf("creating control folder: %w", err)
		}
	}
	if err := s.store.Save(remoteLog); err != nil {
		return nil, fmt.Errorf("saving log: %w", err)
	}

	s.logger.Info("pull finished", "downloaded", res.Transferred, "removed", res.Removed)
	return res, nil
}

// fetchLog returns the remote log, or nil when the remote has none.
func (s *CVService) fetchLog(ctx context.Context, t Transfer) (*CommitLog, error) {
	var buf bytes.Buffer
	if err := s.getBlob(ctx, t, t.LogKey, &buf); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching remote log: %w", err)
	}
	log, err := t.Codec.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decoding remote log: %w", err)
	}
	return log, nil
}

func (s *CVService) upload(ctx context.Context, t Transfer, relPath string) error {
	f, err := s.fsmgr.Open(relPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", relPath, err)
	}
	defer f.Close()

	if err := s.putBlob(ctx, t, relPath, f); err != nil {
		return fmt.Errorf("uploading %s: %w", relPath, err)
	}
	s.logger.Debug("uploaded", "path", relPath)
	return nil
}

func (s *CVService) download(ctx context.Context, t Transfer, relPath string) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := s.getBlob(ctx, t, relPath, &buf); err != nil {
		return nil, fmt.Errorf("downloading %s: %w", relPath, err)
	}
	s.logger.Debug("downloaded", "path", relPath)
	return &buf, nil
}

// putBlob encrypts r into memory and stores it, since remotes need the size
// up front.
func (s *CVService) putBlob(ctx context.Context, t Transfer, key string, r io.Reader) error {
	var buf bytes.Buffer
	if t.Encryptor != nil {
		if err := t.Encryptor.Encrypt(r, &buf); err != nil {
			return fmt.Errorf("encrypting: %w", err)
		}
	} else if _, err := io.Copy(&buf, r); err != nil {
		return fmt.Errorf("reading: %w", err)
	}
	return t.Remote.Put(ctx, key, &buf, int64(buf.Len()))
}

func (s *CVService) getBlob(ctx context.Context, t Transfer, key string, w io.Writer) error {
	if t.Encryptor == nil {
		return t.Remote.Get(ctx, key, w)
	}
	var buf bytes.Buffer
	if err := t.Remote.Get(ctx, key, &buf); err != nil {
		return err
	}
	if err := t.Encryptor.Decrypt(&buf, w); err != nil {
		return fmt.Errorf("decrypting: %w", err)
	}
	return nil
}
