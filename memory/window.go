package memory

import (
	"context"
	"fmt"
	"sync"
)

// Window keeps only the most recent K turn-pairs. Older turns are
// discarded, not summarized.
type Window struct {
	mu    sync.RWMutex
	k     int
	turns []Turn
}

// NewWindow creates a windowed buffer retaining the last k turn-pairs.
func NewWindow(k int) (*Window, error) {
	if k <= 0 {
		return nil, fmt.Errorf("memory: window size must be positive, got %d", k)
	}
	return &Window{k: k}, nil
}

// Append records one exchange and truncates to the window size.
func (w *Window) Append(ctx context.Context, userMsg, assistantMsg string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = append(w.turns,
		Turn{Role: RoleUser, Content: userMsg},
		Turn{Role: RoleAssistant, Content: assistantMsg},
	)
	if max := 2 * w.k; len(w.turns) > max {
		w.turns = append([]Turn(nil), w.turns[len(w.turns)-max:]...)
	}
	return nil
}

// Load returns the retained suffix of the turn sequence.
func (w *Window) Load(ctx context.Context) (Context, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Context{Turns: copyTurns(w.turns)}, nil
}

// Seed replaces the window contents with previously stored turns,
// keeping only the trailing window.
func (w *Window) Seed(turns []Turn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if max := 2 * w.k; len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	w.turns = copyTurns(turns)
}

// Verify Window implements Memory
var _ Memory = (*Window)(nil)
