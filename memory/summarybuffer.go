package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/docsage/docsage/llm"
)

// TokenEstimator estimates the token length of a text. The exact scheme
// is a collaborator concern; the eviction loop is the contract here.
type TokenEstimator func(text string) int

// EstimateTokens is the default estimator: roughly four characters per
// token.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// SummaryBuffer is the hybrid memory kind: recent exchanges stay raw in
// a trailing buffer; when the buffer's estimated token length exceeds
// the budget, the oldest turn-pairs are evicted one at a time and
// folded into a running summary until the buffer is back under budget.
// Load returns summary plus trailing turns, summary first.
type SummaryBuffer struct {
	mu       sync.RWMutex
	client   *llm.Client
	budget   int
	estimate TokenEstimator

	summary string
	turns   []Turn
}

// NewSummaryBuffer creates a summary-buffer memory with the given token
// budget. A nil estimator selects EstimateTokens.
func NewSummaryBuffer(client *llm.Client, tokenBudget int, estimate TokenEstimator) (*SummaryBuffer, error) {
	if tokenBudget <= 0 {
		return nil, fmt.Errorf("memory: token budget must be positive, got %d", tokenBudget)
	}
	if estimate == nil {
		estimate = EstimateTokens
	}
	return &SummaryBuffer{client: client, budget: tokenBudget, estimate: estimate}, nil
}

// Append records one exchange, then evicts and folds oldest pairs while
// the trailing buffer exceeds the budget. All folding happens on copies;
// state mutates only after every summarize call has succeeded, so a
// failed or cancelled call leaves the memory exactly as it was.
func (s *SummaryBuffer) Append(ctx context.Context, userMsg, assistantMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(copyTurns(s.turns),
		Turn{Role: RoleUser, Content: userMsg},
		Turn{Role: RoleAssistant, Content: assistantMsg},
	)
	summary := s.summary

	for len(turns) >= 2 && s.bufferTokens(turns) > s.budget {
		updated, err := summarize(ctx, s.client, summary, turns[0].Content, turns[1].Content)
		if err != nil {
			return fmt.Errorf("memory: fold evicted pair: %w", err)
		}
		summary = updated
		turns = turns[2:]
	}

	s.summary = summary
	s.turns = turns
	return nil
}

// Load returns the summary followed by the trailing raw turns.
func (s *SummaryBuffer) Load(ctx context.Context) (Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Context{Summary: s.summary, Turns: copyTurns(s.turns)}, nil
}

func (s *SummaryBuffer) bufferTokens(turns []Turn) int {
	total := 0
	for _, t := range turns {
		total += s.estimate(t.Content)
	}
	return total
}

// Verify SummaryBuffer implements Memory
var _ Memory = (*SummaryBuffer)(nil)
