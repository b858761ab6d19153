package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one session row per profile in a local SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	profile string
	logger  *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path. Parent directories are
// created if needed.
func NewSQLiteStore(path, profile string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "session")

	if profile == "" {
		profile = "default"
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, profile: profile, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("sqlite session store initialized", "path", path, "profile", profile)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			profile       TEXT PRIMARY KEY,
			access_token  TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			user_id       TEXT NOT NULL,
			username      TEXT NOT NULL,
			logged_in     INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		);
	`)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the stored session, or the zero Session when none is stored.
func (s *SQLiteStore) Get(ctx context.Context) (Session, error) {
	var (
		sess     Session
		loggedIn int
		updated  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, user_id, username, logged_in, updated_at
		FROM sessions WHERE profile = ?
	`, s.profile).Scan(&sess.AccessToken, &sess.RefreshToken, &sess.UserID, &sess.Username, &loggedIn, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	sess.LoggedIn = loggedIn == 1
	if updated != 0 {
		sess.UpdatedAt = time.UnixMilli(updated)
	}
	return sess, nil
}

// Set replaces the stored session.
func (s *SQLiteStore) Set(ctx context.Context, sess Session) error {
	loggedIn := 0
	if sess.LoggedIn {
		loggedIn = 1
	}
	var updated int64
	if !sess.UpdatedAt.IsZero() {
		updated = sess.UpdatedAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (profile, access_token, refresh_token, user_id, username, logged_in, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			user_id = excluded.user_id,
			username = excluded.username,
			logged_in = excluded.logged_in,
			updated_at = excluded.updated_at
	`, s.profile, sess.AccessToken, sess.RefreshToken, sess.UserID, sess.Username, loggedIn, updated)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear deletes the profile row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE profile = ?`, s.profile); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
