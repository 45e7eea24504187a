// Retrieval tool - exposes a retriever to the agent loop.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docsage/docsage/retrieve"
)

// DefaultRetrievalTopK is the number of chunks fetched when the LLM
// does not ask for a specific count.
const DefaultRetrievalTopK = 4

// RetrievalTool adapts a retriever into the tool catalog. The
// description text is supplied by the caller so the LLM is told what
// the underlying corpus contains.
type RetrievalTool struct {
	BaseTool
	name        string
	description string
	retriever   retrieve.Retriever
}

// NewRetrievalTool creates a retrieval tool with the given name and
// caller-supplied description of the corpus.
func NewRetrievalTool(name, description string, retriever retrieve.Retriever) *RetrievalTool {
	if name == "" {
		name = "search_corpus"
	}
	if description == "" {
		description = "Search the document corpus for passages relevant to a query."
	}
	return &RetrievalTool{name: name, description: description, retriever: retriever}
}

// retrievalArgs is the input schema for the retrieval tool.
type retrievalArgs struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// Metadata returns tool metadata.
func (t *RetrievalTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        t.name,
		Description: t.description,
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "The search query", Required: true},
			{Name: "k", ParamType: "integer", Description: "Number of passages to return", Required: false},
		},
	}
}

// Validate checks that a query is present.
func (t *RetrievalTool) Validate(args json.RawMessage) error {
	var parsed retrievalArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(parsed.Query) == "" {
		return fmt.Errorf("query must not be empty")
	}
	return nil
}

// Execute runs the retriever and formats the ranked chunks as numbered
// passages for the observation.
func (t *RetrievalTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var parsed retrievalArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	if parsed.K <= 0 {
		parsed.K = DefaultRetrievalTopK
	}

	results, err := t.retriever.Retrieve(ctx, parsed.Query, parsed.K)
	if err != nil {
		return ToolResult{}, err
	}
	if len(results) == 0 {
		return SuccessResult("No relevant passages found."), nil
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] (score %.3f) %s\n", i+1, r.Score, r.Chunk.Text)
	}
	return SuccessResult(strings.TrimRight(b.String(), "\n")), nil
}

// Verify RetrievalTool implements Tool
var _ Tool = (*RetrievalTool)(nil)
