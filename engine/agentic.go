package engine

import (
	"context"
	"fmt"

	"github.com/docsage/docsage/agent"
	"github.com/docsage/docsage/answer"
	"github.com/docsage/docsage/llm"
	"github.com/docsage/docsage/memory"
	"github.com/docsage/docsage/retrieve"
	"github.com/docsage/docsage/tools"
)

// Agentic answers questions through the agent loop: the LLM itself
// decides, per step, whether to search the corpus again or answer.
type Agentic struct {
	loop *agent.Loop
}

// NewAgentic creates an agentic engine exposing the retriever as the
// single catalog tool. corpusDescription tells the model what the
// corpus contains; maxSteps bounds decision passes per turn.
func NewAgentic(client *llm.Client, retriever retrieve.Retriever, mem memory.Memory, corpusDescription string, maxSteps int) (*Agentic, error) {
	registry := tools.NewRegistry()
	tool := tools.NewRetrievalTool("search_corpus", corpusDescription, retriever)
	if err := registry.Register(tool); err != nil {
		return nil, fmt.Errorf("engine: register retrieval tool: %w", err)
	}

	loop, err := agent.NewLoop(agent.Config{
		Decide:   agent.LLMDecider(client),
		Registry: registry,
		Memory:   mem,
		MaxSteps: maxSteps,
	})
	if err != nil {
		return nil, err
	}
	return &Agentic{loop: loop}, nil
}

// Ask answers one question through the loop.
func (a *Agentic) Ask(ctx context.Context, question string) (answer.Answer, error) {
	result, err := a.loop.Run(ctx, question)
	if err != nil {
		return answer.Answer{}, err
	}
	return answer.Answer{Text: result.Answer}, nil
}
