// Package session provides persistent per-session conversation logs.
package session

import (
	"errors"
	"time"
)

// Store persists session transcripts.
// The log is append-only per session: Read returns messages in the exact
// order they were appended, with roles preserved.
// Implementations must be safe for concurrent use across sessions; the
// pipeline never issues concurrent writes to the same session within one
// run.
type Store interface {
	// Append adds a message to the end of a session's log.
	// Creates the session if it doesn't exist yet.
	Append(sessionID, role, content string) error

	// Read returns all messages for a session in append order.
	// Returns an empty slice (not an error) for an unknown session.
	Read(sessionID string) ([]Entry, error)

	// Delete removes a session and all its messages.
	// Returns nil if the session doesn't exist.
	Delete(sessionID string) error

	// Rename sets a human-readable title for a session.
	// Returns ErrSessionNotFound if the session has no messages yet.
	Rename(sessionID, title string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Entry is one stored conversation turn.
type Entry struct {
	SessionID string
	Role      string
	Content   string
	Timestamp time.Time
}

// Sentinel errors for session operations.
var (
	// ErrSessionNotFound indicates the session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("session store closed")
)
