// Package storage provides session persistence for conversation turns.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes
package storage

import (
	"context"

	"github.com/docsage/docsage/memory"
)

// SessionStore defines the interface for persisting conversation turns
// per session. A session has a single writer; implementations serialize
// writes and permit concurrent reads.
type SessionStore interface {
	// Save saves the turn sequence for a session, replacing any prior
	// contents.
	Save(ctx context.Context, sessionID string, turns []memory.Turn) error

	// Load loads the turn sequence for a session.
	// Returns empty slice (not nil) if session doesn't exist.
	// Returns error only for storage failures, not missing sessions.
	Load(ctx context.Context, sessionID string) ([]memory.Turn, error)

	// Delete deletes a session and its turns.
	Delete(ctx context.Context, sessionID string) error

	// ListSessions lists all session IDs.
	ListSessions(ctx context.Context) ([]string, error)

	// Exists checks if a session exists.
	Exists(ctx context.Context, sessionID string) (bool, error)
}
