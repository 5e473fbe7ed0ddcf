package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists sessions so they survive a bridge restart.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	login INTEGER NOT NULL,
	server TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	last_activity TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_last_activity ON sessions(last_activity);
`

// NewSQLiteStore opens (and creates if needed) the session database at path.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("session db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create session db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers single writer.
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply session schema: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl}, nil
}

func (s *SQLiteStore) cutoff() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(-s.ttl)
}

func (s *SQLiteStore) Create(login int64, server string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:           NewID(login),
		Login:        login,
		Server:       server,
		CreatedAt:    now,
		LastActivity: now,
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, login, server, created_at, last_activity)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_activity = excluded.last_activity
	`, sess.ID, sess.Login, sess.Server, sess.CreatedAt, sess.LastActivity)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) Get(id string) (*Session, error) {
	var sess Session
	err := s.db.QueryRow(`
		SELECT id, login, server, created_at, last_activity
		FROM sessions WHERE id = ? AND last_activity > ?
	`, id, s.cutoff()).Scan(&sess.ID, &sess.Login, &sess.Server, &sess.CreatedAt, &sess.LastActivity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLiteStore) Touch(id string) bool {
	res, err := s.db.Exec(`
		UPDATE sessions SET last_activity = ? WHERE id = ? AND last_activity > ?
	`, time.Now(), id, s.cutoff())
	if err != nil {
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) Exists(id string) bool {
	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM sessions WHERE id = ? AND last_activity > ?
	`, id, s.cutoff()).Scan(&one)
	return err == nil
}

func (s *SQLiteStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) List() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, login, server, created_at, last_activity
		FROM sessions WHERE last_activity > ?
		ORDER BY created_at
	`, s.cutoff())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Login, &sess.Server, &sess.CreatedAt, &sess.LastActivity); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Len() int {
	var n int
	if err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sessions WHERE last_activity > ?
	`, s.cutoff()).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close expires stale rows and releases the DB handle.
func (s *SQLiteStore) Close() error {
	_, _ = s.db.Exec(`DELETE FROM sessions WHERE last_activity <= ?`, s.cutoff())
	return s.db.Close()
}
