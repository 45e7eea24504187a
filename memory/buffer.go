package memory

import (
	"context"
	"sync"
)

// Buffer keeps the full turn sequence with no eviction.
type Buffer struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewBuffer creates an empty unbounded buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append records one exchange.
func (b *Buffer) Append(ctx context.Context, userMsg, assistantMsg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = append(b.turns,
		Turn{Role: RoleUser, Content: userMsg},
		Turn{Role: RoleAssistant, Content: assistantMsg},
	)
	return nil
}

// Load returns the full turn sequence.
func (b *Buffer) Load(ctx context.Context) (Context, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Context{Turns: copyTurns(b.turns)}, nil
}

// Seed replaces the buffer contents with previously stored turns.
// Used to resume a persisted session.
func (b *Buffer) Seed(turns []Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = copyTurns(turns)
}

// Verify Buffer implements Memory
var _ Memory = (*Buffer)(nil)
