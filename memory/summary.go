package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/docsage/docsage/llm"
)

// Summary folds every exchange into a running natural-language summary
// through the LLM. Raw turns are discarded once folded; Load returns
// the summary alone.
type Summary struct {
	mu      sync.RWMutex
	client  *llm.Client
	summary string
}

// NewSummary creates a summary memory backed by the given client.
func NewSummary(client *llm.Client) *Summary {
	return &Summary{client: client}
}

// Append folds the exchange into the summary. If the summarize call
// fails the previous summary is kept unchanged and the error is
// returned, so the exchange is never silently dropped - the caller
// retries the whole append.
func (s *Summary) Append(ctx context.Context, userMsg, assistantMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := summarize(ctx, s.client, s.summary, userMsg, assistantMsg)
	if err != nil {
		return fmt.Errorf("memory: summarize: %w", err)
	}
	s.summary = updated
	return nil
}

// Load returns the running summary.
func (s *Summary) Load(ctx context.Context) (Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Context{Summary: s.summary}, nil
}

// summarize asks the LLM to fold one exchange into an existing summary.
func summarize(ctx context.Context, client *llm.Client, previous, userMsg, assistantMsg string) (string, error) {
	if previous == "" {
		previous = "(empty)"
	}
	prompt := fmt.Sprintf(
		`Progressively summarize a conversation. Fold the new exchange into the current summary, keeping facts, names, and open questions. Drop nothing the new exchange establishes.

Current summary:
%s

New exchange:
user: %s
assistant: %s

Respond with the updated summary only.`,
		previous, userMsg, assistantMsg,
	)

	return client.Chat(ctx, []llm.ChatMessage{llm.UserMessage(prompt)})
}

// Verify Summary implements Memory
var _ Memory = (*Summary)(nil)
