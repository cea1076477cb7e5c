package session

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists session logs to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite session store.
// The path should be a file path (e.g., "./sessions.db") or ":memory:" for
// testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			session_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			PRIMARY KEY (session_id, sequence)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create messages table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session_titles (
			session_id TEXT PRIMARY KEY,
			title TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create titles table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_messages_session_id
		ON messages(session_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(sessionID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	// Sequence is max + 1 within the session, computed in the same
	// statement so appends stay ordered without a separate counter.
	_, err := s.db.Exec(`
		INSERT INTO messages (session_id, sequence, role, content, timestamp)
		VALUES (
			?,
			COALESCE((SELECT MAX(sequence) FROM messages WHERE session_id = ?), 0) + 1,
			?, ?, ?
		)
	`, sessionID, sessionID, role, content, time.Now().UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Read implements Store.
func (s *SQLiteStore) Read(sessionID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT role, content, timestamp
		FROM messages
		WHERE session_id = ?
		ORDER BY sequence
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var timestamp string
		if err := rows.Scan(&e.Role, &e.Content, &timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		e.SessionID = sessionID
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return entries, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session messages: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM session_titles WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session title: %w", err)
	}
	return nil
}

// Rename implements Store.
func (s *SQLiteStore) Rename(sessionID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	var count int
	if err := s.db.QueryRow(`
		SELECT COUNT(*) FROM messages WHERE session_id = ?
	`, sessionID).Scan(&count); err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if count == 0 {
		return ErrSessionNotFound
	}

	_, err := s.db.Exec(`
		INSERT INTO session_titles (session_id, title)
		VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET title = excluded.title
	`, sessionID, title)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}

// Title returns the title for a session, or empty string if unset.
func (s *SQLiteStore) Title(sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	var title string
	err := s.db.QueryRow(`
		SELECT title FROM session_titles WHERE session_id = ?
	`, sessionID).Scan(&title)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
