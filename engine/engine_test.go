package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/docsage/docsage/answer"
	"github.com/docsage/docsage/document"
	"github.com/docsage/docsage/index"
	"github.com/docsage/docsage/llm"
	"github.com/docsage/docsage/memory"
	"github.com/docsage/docsage/split"
)

// hashEmbedder produces a deterministic vector from text content.
type hashEmbedder struct {
	failOn string
}

func (h *hashEmbedder) Name() string   { return "hash" }
func (h *hashEmbedder) Dimension() int { return 4 }

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if h.failOn != "" && text == h.failOn {
		return nil, errors.New("scripted embed failure")
	}
	v := make([]float64, 4)
	for i, r := range text {
		v[i%4] += float64(r)
	}
	return v, nil
}

func (h *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fixedRetriever returns the same results for any query.
type fixedRetriever struct {
	results []index.Result
	err     error
}

func (f *fixedRetriever) Retrieve(ctx context.Context, query string, k int) ([]index.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.results) {
		return f.results[:k], nil
	}
	return f.results, nil
}

// fakeProvider returns scripted responses in order.
type fakeProvider struct {
	responses []string
	calls     int
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.Response, error) {
	if f.calls >= len(f.responses) {
		return llm.Response{}, fmt.Errorf("no response scripted for call %d", f.calls)
	}
	response := f.responses[f.calls]
	f.calls++
	return llm.Response{Content: response}, nil
}

func (f *fakeProvider) ChatWithFormat(ctx context.Context, messages []llm.ChatMessage, format *llm.ResponseFormat) (llm.Response, error) {
	return f.Chat(ctx, messages)
}

func newSplitter(t *testing.T) *split.Splitter {
	t.Helper()
	splitter, err := split.New(split.Config{
		MaxChunkSize: 200,
		Overlap:      20,
		Markers:      []split.Marker{{Name: "section", Prefix: "# "}},
	})
	if err != nil {
		t.Fatalf("split.New failed: %v", err)
	}
	return splitter
}

func TestIngestSplitsEmbedsAndIndexes(t *testing.T) {
	ix := index.New()
	ingestor := NewIngestor(newSplitter(t), &hashEmbedder{}, ix)

	docs := []document.Document{
		document.New("# One\nfirst section body\n\n# Two\nsecond section body", map[string]string{"source": "a.md"}),
		document.New("plain document with no headings", nil),
	}

	n, err := ingestor.Ingest(context.Background(), docs)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if n != 3 {
		t.Errorf("expected 3 chunks ingested, got %d", n)
	}
	if ix.Len() != 3 {
		t.Errorf("expected 3 index entries, got %d", ix.Len())
	}
	if ix.Dimension() != 4 {
		t.Errorf("expected dimension 4, got %d", ix.Dimension())
	}

	chunks, _ := ix.Vectors()
	if chunks[0].Metadata["section"] != "One" {
		t.Errorf("expected section metadata, got %q", chunks[0].Metadata["section"])
	}
}

func TestIngestEmbedFailureLeavesIndexUnchanged(t *testing.T) {
	ix := index.New()
	embedder := &hashEmbedder{failOn: "poison text"}
	ingestor := NewIngestor(newSplitter(t), embedder, ix)

	docs := []document.Document{
		document.New("good document", nil),
		document.New("poison text", nil),
	}

	n, err := ingestor.Ingest(context.Background(), docs)
	if err == nil {
		t.Fatal("expected embed failure")
	}

	// The first document landed; the failed one added nothing
	if n != 1 {
		t.Errorf("expected 1 chunk before failure, got %d", n)
	}
	if ix.Len() != 1 {
		t.Errorf("expected no partial additions for the failed document, got %d entries", ix.Len())
	}
}

func TestIngestEmptyDocumentSkipped(t *testing.T) {
	ix := index.New()
	ingestor := NewIngestor(newSplitter(t), &hashEmbedder{}, ix)

	n, err := ingestor.Ingest(context.Background(), []document.Document{document.New("   ", nil)})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if n != 0 || ix.Len() != 0 {
		t.Errorf("expected nothing ingested, got n=%d len=%d", n, ix.Len())
	}
}

func TestConversationalAsk(t *testing.T) {
	retriever := &fixedRetriever{results: []index.Result{
		{Chunk: document.Chunk{ID: "a", Text: "relevant passage"}, Score: 0.9},
	}}
	provider := &fakeProvider{responses: []string{"the answer"}}
	mem := memory.NewBuffer()

	eng := NewConversational(retriever, mem, answer.New(llm.NewClient(provider)), 0, answer.Options{
		Strategy:      answer.Stuff,
		ReturnSources: true,
	})

	ans, err := eng.Ask(context.Background(), "what is it?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if ans.Text != "the answer" {
		t.Errorf("expected 'the answer', got %q", ans.Text)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].ID != "a" {
		t.Errorf("unexpected sources: %+v", ans.Sources)
	}

	loaded, err := mem.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Turns) != 2 {
		t.Fatalf("expected the exchange recorded, got %d turns", len(loaded.Turns))
	}
	if loaded.Turns[0].Content != "what is it?" || loaded.Turns[1].Content != "the answer" {
		t.Errorf("unexpected recorded turns: %+v", loaded.Turns)
	}
}

func TestConversationalRetrieveFailureLeavesMemory(t *testing.T) {
	retriever := &fixedRetriever{err: errors.New("index gone")}
	provider := &fakeProvider{responses: []string{"unused"}}
	mem := memory.NewBuffer()

	eng := NewConversational(retriever, mem, answer.New(llm.NewClient(provider)), 2, answer.Options{Strategy: answer.Stuff})

	if _, err := eng.Ask(context.Background(), "question"); err == nil {
		t.Fatal("expected error")
	}

	loaded, err := mem.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Turns) != 0 {
		t.Errorf("memory should be untouched after failure, got %d turns", len(loaded.Turns))
	}
}

func TestConversationalSynthesisFailureLeavesMemory(t *testing.T) {
	// Empty retrieval makes the stuff strategy fail with ErrEmptyContext
	retriever := &fixedRetriever{}
	provider := &fakeProvider{responses: []string{"unused"}}
	mem := memory.NewBuffer()

	eng := NewConversational(retriever, mem, answer.New(llm.NewClient(provider)), 2, answer.Options{Strategy: answer.Stuff})

	_, err := eng.Ask(context.Background(), "question")
	if !errors.Is(err, answer.ErrEmptyContext) {
		t.Fatalf("expected ErrEmptyContext, got %v", err)
	}

	loaded, err := mem.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Turns) != 0 {
		t.Errorf("memory should be untouched after failure, got %d turns", len(loaded.Turns))
	}
}

func TestConversationalMemoryFeedsNextTurn(t *testing.T) {
	retriever := &fixedRetriever{results: []index.Result{
		{Chunk: document.Chunk{ID: "a", Text: "passage"}, Score: 0.9},
	}}
	provider := &fakeProvider{responses: []string{"first answer", "second answer"}}
	mem := memory.NewBuffer()

	eng := NewConversational(retriever, mem, answer.New(llm.NewClient(provider)), 2, answer.Options{Strategy: answer.Stuff})

	if _, err := eng.Ask(context.Background(), "first question"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if _, err := eng.Ask(context.Background(), "second question"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	loaded, err := mem.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Turns) != 4 {
		t.Errorf("expected 4 recorded turns, got %d", len(loaded.Turns))
	}
}

func TestAgenticAsk(t *testing.T) {
	retriever := &fixedRetriever{results: []index.Result{
		{Chunk: document.Chunk{ID: "a", Text: "passage"}, Score: 0.9},
	}}
	provider := &fakeProvider{responses: []string{
		`{"thought": "I can answer directly", "is_final": true, "final_answer": "agent answer"}`,
	}}
	mem := memory.NewBuffer()

	eng, err := NewAgentic(llm.NewClient(provider), retriever, mem, "test corpus", 3)
	if err != nil {
		t.Fatalf("NewAgentic failed: %v", err)
	}

	ans, err := eng.Ask(context.Background(), "question")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if ans.Text != "agent answer" {
		t.Errorf("expected 'agent answer', got %q", ans.Text)
	}

	loaded, err := mem.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Turns) != 2 {
		t.Errorf("expected the exchange recorded, got %d turns", len(loaded.Turns))
	}
}

func TestAgenticSearchesThenAnswers(t *testing.T) {
	retriever := &fixedRetriever{results: []index.Result{
		{Chunk: document.Chunk{ID: "a", Text: "the sky is blue"}, Score: 0.9},
	}}
	provider := &fakeProvider{responses: []string{
		`{"thought": "search first", "action": {"tool": "search_corpus", "input": {"query": "sky"}}, "is_final": false}`,
		`{"thought": "found it", "is_final": true, "final_answer": "blue"}`,
	}}

	eng, err := NewAgentic(llm.NewClient(provider), retriever, nil, "test corpus", 3)
	if err != nil {
		t.Fatalf("NewAgentic failed: %v", err)
	}

	ans, err := eng.Ask(context.Background(), "what color is the sky?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if ans.Text != "blue" {
		t.Errorf("expected 'blue', got %q", ans.Text)
	}
	if provider.calls != 2 {
		t.Errorf("expected 2 decision calls, got %d", provider.calls)
	}
}
