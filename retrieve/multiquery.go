package retrieve

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/docsage/docsage/index"
	"github.com/docsage/docsage/internal/jsonutil"
	"github.com/docsage/docsage/llm"
)

// DefaultVariants is the number of paraphrased query variants generated
// when none is configured.
const DefaultVariants = 3

// MultiQuery wraps an inner retriever with LLM-based query expansion.
// Single-query retrieval is sensitive to lexical phrasing mismatch;
// running the inner retriever once per paraphrase and merging improves
// recall at the cost of extra LLM calls.
type MultiQuery struct {
	inner    Retriever
	client   *llm.Client
	variants int
}

// NewMultiQuery creates a multi-query retriever around an inner
// retriever. variants <= 0 selects DefaultVariants.
func NewMultiQuery(inner Retriever, client *llm.Client, variants int) *MultiQuery {
	if variants <= 0 {
		variants = DefaultVariants
	}
	return &MultiQuery{inner: inner, client: client, variants: variants}
}

// paraphrases asks the LLM for rewordings of the query.
func (m *MultiQuery) paraphrases(ctx context.Context, query string) ([]string, error) {
	prompt := fmt.Sprintf(
		`Generate %d alternative phrasings of the following search query. Keep the meaning identical, vary the wording.

Query: %s

Respond in this JSON format:
{"queries": ["...", "..."]}`,
		m.variants, query,
	)

	response, err := m.client.ChatWithFormat(ctx,
		[]llm.ChatMessage{llm.UserMessage(prompt)},
		llm.NewJSONObjectFormat(),
	)
	if err != nil {
		return nil, err
	}

	parsed, err := jsonutil.Unmarshal[struct {
		Queries []string `json:"queries"`
	}](response)
	if err != nil {
		return nil, fmt.Errorf("parse query variants: %w", err)
	}

	var out []string
	for _, q := range parsed.Queries {
		q = strings.TrimSpace(q)
		if q != "" && len(out) < m.variants {
			out = append(out, q)
		}
	}
	return out, nil
}

// Retrieve expands the query, runs the inner retriever once per variant
// (the original included) concurrently, and merges the results
// de-duplicated by chunk identity. Each surfaced chunk keeps the
// highest score it received across variants; the merged set is ranked
// by that score descending with first-seen order breaking ties.
func (m *MultiQuery) Retrieve(ctx context.Context, query string, k int) ([]index.Result, error) {
	variants, err := m.paraphrases(ctx, query)
	if err != nil {
		return nil, &Error{Op: "expand query", Err: err}
	}
	queries := append([]string{query}, variants...)

	// Per-variant retrievals are independent; fan out and merge only at
	// the de-duplication step.
	perQuery := make([][]index.Result, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			perQuery[i], errs[i] = m.inner.Retrieve(ctx, q, k)
		}(i, q)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, &Error{Op: "retrieve variant", Err: err}
		}
	}

	// Merge in query order so "first seen" is deterministic.
	type merged struct {
		result index.Result
		seen   int
	}
	byID := make(map[string]*merged)
	var order []*merged
	for _, results := range perQuery {
		for _, r := range results {
			if prev, ok := byID[r.Chunk.ID]; ok {
				if r.Score > prev.result.Score {
					prev.result.Score = r.Score
				}
				continue
			}
			mr := &merged{result: r, seen: len(order)}
			byID[r.Chunk.ID] = mr
			order = append(order, mr)
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return order[a].result.Score > order[b].result.Score
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]index.Result, 0, k)
	for _, mr := range order[:k] {
		results = append(results, mr.result)
	}
	return results, nil
}

// Verify MultiQuery implements Retriever
var _ Retriever = (*MultiQuery)(nil)
