// SQLite-backed session store.
//
// Information Hiding:
// - Database schema hidden from users
// - SQL queries encapsulated in methods
// - Connection management internal

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/docsage/docsage/memory"
)

// SqliteSessionStore implements SessionStore using SQLite.
// Sessions survive process restarts.
type SqliteSessionStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Parent directories are created if missing.
func OpenSqlite(path string) (*SqliteSessionStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SqliteSessionStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// NewSqliteInMemory creates an in-memory SQLite store, useful for tests.
func NewSqliteInMemory() (*SqliteSessionStore, error) {
	return OpenSqlite(":memory:")
}

// Close closes the underlying database connection.
func (s *SqliteSessionStore) Close() error {
	return s.db.Close()
}

func (s *SqliteSessionStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS turns (
		session_id TEXT NOT NULL,
		turn_index INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (session_id, turn_index),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save replaces the stored turn sequence for a session.
func (s *SqliteSessionStore) Save(ctx context.Context, sessionID string, turns []memory.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id) VALUES (?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`,
		sessionID); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}

	for i, turn := range turns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, turn_index, role, content) VALUES (?, ?, ?, ?)`,
			sessionID, i, turn.Role, turn.Content); err != nil {
			return fmt.Errorf("failed to insert turn %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Load loads the turn sequence for a session in stored order.
// Returns empty slice if session doesn't exist.
func (s *SqliteSessionStore) Load(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM turns WHERE session_id = ? ORDER BY turn_index`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := []memory.Turn{}
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, memory.Turn{Role: role, Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	return turns, nil
}

// Delete deletes a session and its turns.
func (s *SqliteSessionStore) Delete(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return tx.Commit()
}

// ListSessions lists all session IDs ordered by most recently updated.
func (s *SqliteSessionStore) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// Exists checks if a session exists.
func (s *SqliteSessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sessions WHERE id = ?)`,
		sessionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return exists, nil
}

// Verify SqliteSessionStore implements SessionStore
var _ SessionStore = (*SqliteSessionStore)(nil)
