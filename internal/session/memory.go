package session

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory session store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]Entry
	titles map[string]string
	closed bool
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[string][]Entry),
		titles: make(map[string]string),
	}
}

// Append implements Store.
func (m *MemoryStore) Append(sessionID, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.data[sessionID] = append(m.data[sessionID], Entry{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Read implements Store.
func (m *MemoryStore) Read(sessionID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	entries := m.data[sessionID]

	// Return a copy to prevent modification
	result := make([]Entry, len(entries))
	copy(result, entries)
	return result, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, sessionID)
	delete(m.titles, sessionID)
	return nil
}

// Rename implements Store.
func (m *MemoryStore) Rename(sessionID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if len(m.data[sessionID]) == 0 {
		return ErrSessionNotFound
	}

	m.titles[sessionID] = title
	return nil
}

// Title returns the title for a session, or empty string if unset.
func (m *MemoryStore) Title(sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrStoreClosed
	}
	return m.titles[sessionID], nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
