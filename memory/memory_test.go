package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/docsage/docsage/llm"
)

// fakeProvider returns scripted responses in order, failing after they
// run out or when err is set.
type fakeProvider struct {
	responses []string
	calls     int
	err       error
	failAfter int // fail once calls reaches this count; 0 disables
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.Response, error) {
	if f.err != nil {
		return llm.Response{}, f.err
	}
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return llm.Response{}, errors.New("scripted failure")
	}
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

func TestBufferAppendAndLoad(t *testing.T) {
	b := NewBuffer()
	ctx := context.Background()

	if err := b.Append(ctx, "hello", "hi there"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := b.Append(ctx, "how are you", "fine"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	loaded, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.Turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(loaded.Turns))
	}
	if loaded.Turns[0].Role != RoleUser || loaded.Turns[0].Content != "hello" {
		t.Errorf("unexpected first turn: %+v", loaded.Turns[0])
	}
	if loaded.Turns[3].Role != RoleAssistant || loaded.Turns[3].Content != "fine" {
		t.Errorf("unexpected last turn: %+v", loaded.Turns[3])
	}
}

func TestBufferLoadReturnsCopy(t *testing.T) {
	b := NewBuffer()
	ctx := context.Background()

	if err := b.Append(ctx, "hello", "hi"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	loaded, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	loaded.Turns[0].Content = "mutated"

	reloaded, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded.Turns[0].Content != "hello" {
		t.Error("mutating loaded turns changed stored state")
	}
}

func TestWindowKeepsLastK(t *testing.T) {
	w, err := NewWindow(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := w.Append(ctx, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	loaded, err := w.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.Turns) != 4 {
		t.Fatalf("expected 4 turns (2 pairs), got %d", len(loaded.Turns))
	}
	if loaded.Turns[0].Content != "q2" {
		t.Errorf("expected oldest retained turn 'q2', got %q", loaded.Turns[0].Content)
	}
	if loaded.Turns[3].Content != "a3" {
		t.Errorf("expected newest turn 'a3', got %q", loaded.Turns[3].Content)
	}
}

func TestWindowRejectsNonPositiveSize(t *testing.T) {
	if _, err := NewWindow(0); err == nil {
		t.Error("expected error for k=0")
	}
	if _, err := NewWindow(-1); err == nil {
		t.Error("expected error for k=-1")
	}
}

func TestWindowSeedTruncates(t *testing.T) {
	w, err := NewWindow(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w.Seed([]Turn{
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "q2"},
		{Role: RoleAssistant, Content: "a2"},
	})

	loaded, err := w.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(loaded.Turns))
	}
	if loaded.Turns[0].Content != "q2" {
		t.Errorf("expected 'q2', got %q", loaded.Turns[0].Content)
	}
}

func TestSummaryFoldsExchanges(t *testing.T) {
	provider := &fakeProvider{responses: []string{"summary one", "summary two"}}
	s := NewSummary(llm.NewClient(provider))
	ctx := context.Background()

	if err := s.Append(ctx, "q1", "a1"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(ctx, "q2", "a2"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Summary != "summary two" {
		t.Errorf("expected 'summary two', got %q", loaded.Summary)
	}
	if len(loaded.Turns) != 0 {
		t.Errorf("expected no raw turns, got %d", len(loaded.Turns))
	}
}

func TestSummaryFailureKeepsState(t *testing.T) {
	provider := &fakeProvider{responses: []string{"summary one"}, failAfter: 1}
	s := NewSummary(llm.NewClient(provider))
	ctx := context.Background()

	if err := s.Append(ctx, "q1", "a1"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(ctx, "q2", "a2"); err == nil {
		t.Fatal("expected error from failing summarize call")
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Summary != "summary one" {
		t.Errorf("failed append changed state: got %q", loaded.Summary)
	}
}

func TestSummaryBufferEvictsOldestPairs(t *testing.T) {
	provider := &fakeProvider{responses: []string{"folded one"}}
	// One token per byte so the budget is easy to reason about
	estimate := func(text string) int { return len(text) }

	s, err := NewSummaryBuffer(llm.NewClient(provider), 10, estimate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	// 4 + 4 = 8 tokens, under budget: no fold
	if err := s.Append(ctx, "aaaa", "bbbb"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("expected no summarize calls yet, got %d", provider.calls)
	}

	// 8 + 8 = 16 tokens, over budget: oldest pair folded out
	if err := s.Append(ctx, "cccc", "dddd"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected 1 summarize call, got %d", provider.calls)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Summary != "folded one" {
		t.Errorf("expected summary 'folded one', got %q", loaded.Summary)
	}
	if len(loaded.Turns) != 2 {
		t.Fatalf("expected 2 trailing turns, got %d", len(loaded.Turns))
	}
	if loaded.Turns[0].Content != "cccc" {
		t.Errorf("expected newest pair retained, got %q", loaded.Turns[0].Content)
	}
}

func TestSummaryBufferFailureLeavesState(t *testing.T) {
	provider := &fakeProvider{err: errors.New("model down")}
	estimate := func(text string) int { return len(text) }

	s, err := NewSummaryBuffer(llm.NewClient(provider), 10, estimate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if err := s.Append(ctx, "aaaa", "bbbb"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// This append would trigger a fold, which fails
	if err := s.Append(ctx, "cccc", "dddd"); err == nil {
		t.Fatal("expected error from failing fold")
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Summary != "" {
		t.Errorf("failed append changed summary: %q", loaded.Summary)
	}
	if len(loaded.Turns) != 2 {
		t.Fatalf("expected 2 turns (failed pair not recorded), got %d", len(loaded.Turns))
	}
	if loaded.Turns[0].Content != "aaaa" {
		t.Errorf("expected original pair intact, got %q", loaded.Turns[0].Content)
	}
}

func TestSummaryBufferRejectsNonPositiveBudget(t *testing.T) {
	if _, err := NewSummaryBuffer(nil, 0, nil); err == nil {
		t.Error("expected error for zero token budget")
	}
}

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 16), 4},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTokens(%q): expected %d, got %d", tc.text, tc.want, got)
		}
	}
}

func TestContextRender(t *testing.T) {
	c := Context{
		Summary: "they discussed caching",
		Turns: []Turn{
			{Role: RoleUser, Content: "what about TTLs?"},
			{Role: RoleAssistant, Content: "expire after an hour"},
		},
	}

	rendered := c.Render()
	if !strings.HasPrefix(rendered, "Conversation summary:\nthey discussed caching") {
		t.Errorf("summary not rendered first: %q", rendered)
	}
	if !strings.Contains(rendered, "user: what about TTLs?") {
		t.Errorf("user turn missing: %q", rendered)
	}
	if !strings.Contains(rendered, "assistant: expire after an hour") {
		t.Errorf("assistant turn missing: %q", rendered)
	}

	if !(Context{}).Empty() {
		t.Error("zero Context should be empty")
	}
	if c.Empty() {
		t.Error("populated Context should not be empty")
	}
}
