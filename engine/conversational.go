package engine

import (
	"context"
	"fmt"

	"github.com/docsage/docsage/answer"
	"github.com/docsage/docsage/document"
	"github.com/docsage/docsage/memory"
	"github.com/docsage/docsage/retrieve"
)

// DefaultTopK is the number of chunks retrieved per question when none
// is configured.
const DefaultTopK = 4

// Conversational answers questions over the corpus, one sequential
// turn at a time: load memory, retrieve, synthesize, then record the
// exchange. Memory mutates only after the whole turn succeeds.
type Conversational struct {
	retriever retrieve.Retriever
	memory    memory.Memory
	synth     *answer.Synthesizer
	topK      int
	opts      answer.Options
}

// NewConversational creates a conversational engine. topK <= 0 selects
// DefaultTopK.
func NewConversational(retriever retrieve.Retriever, mem memory.Memory, synth *answer.Synthesizer, topK int, opts answer.Options) *Conversational {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Conversational{
		retriever: retriever,
		memory:    mem,
		synth:     synth,
		topK:      topK,
		opts:      opts,
	}
}

// Ask answers one question. Any failure aborts the turn without
// touching memory, leaving the conversation resumable from its last
// successful state.
func (c *Conversational) Ask(ctx context.Context, question string) (answer.Answer, error) {
	mem := memory.Context{}
	if c.memory != nil {
		loaded, err := c.memory.Load(ctx)
		if err != nil {
			return answer.Answer{}, fmt.Errorf("engine: load memory: %w", err)
		}
		mem = loaded
	}

	results, err := c.retriever.Retrieve(ctx, question, c.topK)
	if err != nil {
		return answer.Answer{}, fmt.Errorf("engine: retrieve: %w", err)
	}

	chunks := make([]document.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}

	ans, err := c.synth.Synthesize(ctx, question, chunks, mem, c.opts)
	if err != nil {
		return answer.Answer{}, fmt.Errorf("engine: synthesize: %w", err)
	}

	if c.memory != nil {
		if err := c.memory.Append(ctx, question, ans.Text); err != nil {
			return ans, fmt.Errorf("engine: record turn: %w", err)
		}
	}
	return ans, nil
}
