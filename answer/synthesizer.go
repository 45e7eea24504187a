// Package answer combines retrieved chunks, conversation memory, and
// the current question into generation requests and parses the result.
//
// Two combination strategies are provided. Stuff concatenates every
// chunk into a single prompt and makes one LLM call; it fails rather
// than truncate when the combined prompt exceeds the context budget.
// Refine walks the chunks sequentially, producing an initial answer
// from the first chunk and refining it once per remaining chunk.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docsage/docsage/document"
	"github.com/docsage/docsage/llm"
	"github.com/docsage/docsage/memory"
)

// Strategy selects how retrieved chunks are combined.
type Strategy int

const (
	// Stuff concatenates all chunks into one prompt; a single LLM call.
	Stuff Strategy = iota
	// Refine processes chunks sequentially, one LLM call per chunk.
	Refine
)

// ParseStrategy parses a strategy name (case-insensitive).
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "stuff", "":
		return Stuff, nil
	case "refine":
		return Refine, nil
	default:
		return 0, fmt.Errorf("unknown synthesis strategy: %s", s)
	}
}

// Options configures a synthesis call.
type Options struct {
	Strategy Strategy
	// ReturnSources includes the exact ordered chunk set consumed in
	// the Answer.
	ReturnSources bool
	// ContextBudget caps the stuffed prompt size in bytes. Zero means
	// unlimited.
	ContextBudget int
}

// Answer is the synthesis result, with source attributions when
// requested. Usage aggregates token counts across every LLM call the
// strategy made; it is nil when the provider reports none.
type Answer struct {
	Text    string
	Sources []document.Chunk
	Usage   *llm.TokenUsage
}

// ErrEmptyContext reports a synthesis call with zero chunks, which is a
// precondition violation for the refine strategy.
var ErrEmptyContext = errors.New("answer: no chunks to synthesize from")

// OverflowError reports a stuffed prompt exceeding the context budget.
// The synthesizer never truncates silently.
type OverflowError struct {
	Size   int
	Budget int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("answer: combined prompt of %d bytes exceeds context budget of %d", e.Size, e.Budget)
}

// Synthesizer produces answers from retrieved chunks via the LLM.
type Synthesizer struct {
	client *llm.Client
}

// New creates a synthesizer backed by the given client.
func New(client *llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize answers the question from the chunks and memory context.
// Chunk order is significant: it is consumed exactly as the retriever
// ranked it and never re-sorted.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []document.Chunk, mem memory.Context, opts Options) (Answer, error) {
	var text string
	var usage *llm.TokenUsage
	var err error

	switch opts.Strategy {
	case Stuff:
		text, usage, err = s.stuff(ctx, question, chunks, mem, opts.ContextBudget)
	case Refine:
		text, usage, err = s.refine(ctx, question, chunks, mem)
	default:
		return Answer{}, fmt.Errorf("answer: unknown strategy %d", opts.Strategy)
	}
	if err != nil {
		return Answer{}, err
	}

	answer := Answer{Text: strings.TrimSpace(text), Usage: usage}
	if opts.ReturnSources {
		answer.Sources = append([]document.Chunk(nil), chunks...)
	}
	return answer, nil
}

func (s *Synthesizer) stuff(ctx context.Context, question string, chunks []document.Chunk, mem memory.Context, budget int) (string, *llm.TokenUsage, error) {
	if len(chunks) == 0 {
		return "", nil, ErrEmptyContext
	}

	var b strings.Builder
	b.WriteString("Answer the question using only the context passages below.\n")
	if !mem.Empty() {
		b.WriteString("\nConversation so far:\n")
		b.WriteString(mem.Render())
		b.WriteString("\n")
	}
	b.WriteString("\nContext passages:\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, c.Text)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\nAnswer:", question)

	prompt := b.String()
	if budget > 0 && len(prompt) > budget {
		return "", nil, &OverflowError{Size: len(prompt), Budget: budget}
	}

	response, usage, err := s.client.ChatWithUsage(ctx, []llm.ChatMessage{llm.UserMessage(prompt)})
	if err != nil {
		return "", nil, fmt.Errorf("answer: stuff call: %w", err)
	}
	return response, usage, nil
}

// refine makes exactly len(chunks) LLM calls: one initial answer from
// the first chunk, then one refinement per remaining chunk.
func (s *Synthesizer) refine(ctx context.Context, question string, chunks []document.Chunk, mem memory.Context) (string, *llm.TokenUsage, error) {
	if len(chunks) == 0 {
		return "", nil, ErrEmptyContext
	}

	memorySection := ""
	if !mem.Empty() {
		memorySection = fmt.Sprintf("\nConversation so far:\n%s\n", mem.Render())
	}

	initial := fmt.Sprintf(
		"Answer the question using only the context passage below.\n%s\nContext passage:\n%s\n\nQuestion: %s\nAnswer:",
		memorySection, chunks[0].Text, question,
	)
	running, usage, err := s.client.ChatWithUsage(ctx, []llm.ChatMessage{llm.UserMessage(initial)})
	if err != nil {
		return "", nil, fmt.Errorf("answer: initial refine call: %w", err)
	}
	total := addUsage(nil, usage)

	for i, c := range chunks[1:] {
		prompt := fmt.Sprintf(
			"Refine an existing answer with additional context. Keep the answer correct and concise; if the new passage adds nothing, return the existing answer unchanged.\n%s\nQuestion: %s\n\nExisting answer:\n%s\n\nAdditional passage:\n%s\n\nRefined answer:",
			memorySection, question, running, c.Text,
		)
		running, usage, err = s.client.ChatWithUsage(ctx, []llm.ChatMessage{llm.UserMessage(prompt)})
		if err != nil {
			return "", nil, fmt.Errorf("answer: refine call %d: %w", i+2, err)
		}
		total = addUsage(total, usage)
	}
	return running, total, nil
}

// addUsage folds one call's token usage into a running total.
func addUsage(total, u *llm.TokenUsage) *llm.TokenUsage {
	if u == nil {
		return total
	}
	if total == nil {
		total = &llm.TokenUsage{}
	}
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
	return total
}
