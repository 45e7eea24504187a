// Package memory maintains conversational state across turns.
//
// Four kinds are provided, all behind the Memory interface: an
// unbounded buffer, a windowed buffer keeping the last k turn-pairs, an
// LLM-folded running summary, and a hybrid summary-buffer bounded by a
// token budget. State mutates only through Append; a failed append
// leaves the previous state intact so the conversation stays resumable.
package memory

import (
	"context"
	"strings"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single conversation message. Insertion order is significant.
type Turn struct {
	Role    string
	Content string
}

// Context is the materialized view a memory kind produces on Load:
// a running summary, raw turns, or both (summary first).
type Context struct {
	Summary string
	Turns   []Turn
}

// Empty reports whether the context carries no state.
func (c Context) Empty() bool {
	return c.Summary == "" && len(c.Turns) == 0
}

// Render formats the context for inclusion in a prompt: the summary
// first, then raw turns as "role: content" lines.
func (c Context) Render() string {
	var b strings.Builder
	if c.Summary != "" {
		b.WriteString("Conversation summary:\n")
		b.WriteString(c.Summary)
		b.WriteString("\n")
	}
	for _, t := range c.Turns {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Memory is a bounded-resource store of conversation state. Appends are
// serialized per conversation; loads may run concurrently.
type Memory interface {
	// Append records one (user, assistant) exchange. On error no state
	// changes.
	Append(ctx context.Context, userMsg, assistantMsg string) error

	// Load returns the materialized context for prompt construction.
	Load(ctx context.Context) (Context, error)
}

func copyTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
