// In-memory session store.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sync"

	"github.com/docsage/docsage/memory"
)

// InMemorySessionStore implements SessionStore using an in-memory map.
// Data is lost when process terminates.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]memory.Turn
}

// NewInMemorySessionStore creates a new in-memory session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string][]memory.Turn),
	}
}

// Save saves the turn sequence for a session.
func (s *InMemorySessionStore) Save(ctx context.Context, sessionID string, turns []memory.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Make a copy to avoid external mutations
	copied := make([]memory.Turn, len(turns))
	copy(copied, turns)
	s.sessions[sessionID] = copied

	return nil
}

// Load loads the turn sequence for a session.
// Returns empty slice if session doesn't exist.
func (s *InMemorySessionStore) Load(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.sessions[sessionID]
	if !ok {
		return []memory.Turn{}, nil
	}

	// Return a copy to avoid external mutations
	copied := make([]memory.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// Delete deletes a session.
func (s *InMemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// ListSessions lists all session IDs.
func (s *InMemorySessionStore) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.sessions))
	for sessionID := range s.sessions {
		sessions = append(sessions, sessionID)
	}
	return sessions, nil
}

// Exists checks if a session exists.
func (s *InMemorySessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sessions[sessionID]
	return ok, nil
}

// Verify InMemorySessionStore implements SessionStore
var _ SessionStore = (*InMemorySessionStore)(nil)
