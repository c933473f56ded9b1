package logstore

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"cv-go/internal/cv"
	"cv-go/internal/logstore/migrations"
)

// SQLiteStore keeps the commit log in a SQLite database. The connection is
// opened on first use so that a store can be constructed before the control
// folder exists.
type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

var _ cv.LogStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store for the database file at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// OpenConnection opens a SQLite database with foreign keys enabled on a
// single connection and applies pending migrations.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (s *SQLiteStore) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	db, err := OpenConnection(s.path)
	if err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

// Close closes the database if it was opened.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Load reads every commit and its changes in order. A missing database file
// is reported as corruption.
func (s *SQLiteStore) Load() (*cv.CommitLog, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", cv.ErrCorruptLog, s.path)
		}
		return nil, fmt.Errorf("stat log database: %w", err)
	}

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	log := cv.NewCommitLog()
	bySeq := map[int64]int{}

	rows, err := db.Query("SELECT seq, id, message, committed_at FROM commits ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying commits: %w", err)
	}
	for rows.Next() {
		var (
			seq       int64
			c         cv.Commit
			committed int64
		)
		if err := rows.Scan(&seq, &c.ID, &c.Message, &committed); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning commit: %w", err)
		}
		c.Time = fromNanos(committed)
		c.Changes = []cv.FileChange{}
		bySeq[seq] = len(log.Commits)
		log.Commits = append(log.Commits, c)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("reading commits: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading commits: %w", err)
	}

	rows, err = db.Query(`SELECT commit_seq, kind, path, new_path, created_at, update_time, size
		FROM changes ORDER BY commit_seq, position`)
	if err != nil {
		return nil, fmt.Errorf("querying changes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			seq       int64
			r         changeRecord
			newPath   sql.NullString
			createdAt sql.NullInt64
			updated   int64
		)
		if err := rows.Scan(&seq, &r.Type, &r.Path, &newPath, &createdAt, &updated, &r.Size); err != nil {
			return nil, fmt.Errorf("scanning change: %w", err)
		}
		r.NewPath = newPath.String
		if createdAt.Valid {
			r.CreatedAt = fromNanos(createdAt.Int64)
		}
		r.UpdateTime = fromNanos(updated)

		idx, ok := bySeq[seq]
		if !ok {
			return nil, fmt.Errorf("%w: change for unknown commit %d", cv.ErrCorruptLog, seq)
		}
		ch, err := fromRecord(r)
		if err != nil {
			return nil, err
		}
		log.Commits[idx].Changes = append(log.Commits[idx].Changes, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading changes: %w", err)
	}

	return log, nil
}

// Save stores log in one transaction. When the stored commits are a prefix
// of log only the new commits are inserted; otherwise the table is rewritten.
func (s *SQLiteStore) Save(log *cv.CommitLog) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stored, err := storedIDs(tx)
	if err != nil {
		return err
	}

	start := len(stored)
	if !isPrefix(stored, log.Commits) {
		if _, err := tx.Exec("DELETE FROM commits"); err != nil {
			return fmt.Errorf("clearing commits: %w", err)
		}
		start = 0
	}

	for i := start; i < len(log.Commits); i++ {
		if err := insertCommit(tx, int64(i+1), log.Commits[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func storedIDs(tx *sql.Tx) ([]string, error) {
	rows, err := tx.Query("SELECT id FROM commits ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying commit ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning commit id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isPrefix(ids []string, commits []cv.Commit) bool {
	if len(ids) > len(commits) {
		return false
	}
	for i, id := range ids {
		if commits[i].ID != id {
			return false
		}
	}
	return true
}

func insertCommit(tx *sql.Tx, seq int64, c cv.Commit) error {
	if _, err := tx.Exec("INSERT INTO commits (seq, id, message, committed_at) VALUES (?, ?, ?, ?)",
		seq, c.ID, c.Message, c.Time.UnixNano()); err != nil {
		return fmt.Errorf("inserting commit %d: %w", seq, err)
	}

	for pos, ch := range c.Changes {
		r, err := toRecord(ch)
		if err != nil {
			return err
		}
		var newPath sql.NullString
		if r.NewPath != "" {
			newPath = sql.NullString{String: r.NewPath, Valid: true}
		}
		var createdAt sql.NullInt64
		if !r.CreatedAt.IsZero() {
			createdAt = sql.NullInt64{Int64: r.CreatedAt.UnixNano(), Valid: true}
		}
		if _, err := tx.Exec(`INSERT INTO changes
			(commit_seq, position, kind, path, new_path, created_at, update_time, size)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			seq, pos, r.Type, r.Path, newPath, createdAt, r.UpdateTime.UnixNano(), r.Size); err != nil {
			return fmt.Errorf("inserting change %d of commit %d: %w", pos, seq, err)
		}
	}
	return nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
