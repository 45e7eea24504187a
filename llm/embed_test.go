package llm

import (
	"sync"
	"testing"
)

func TestOpenAIEmbedderKnownModelDimensions(t *testing.T) {
	tests := []struct {
		model string
		dim   int
	}{
		{"", 1536}, // default model
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
		{"some-future-model", 0},
	}

	for _, tt := range tests {
		e := NewOpenAIEmbedder("sk-test", tt.model)
		if got := e.Dimension(); got != tt.dim {
			t.Errorf("Dimension for model %q = %d, want %d", tt.model, got, tt.dim)
		}
	}
}

func TestOpenAIEmbedderDimensionConcurrentRecord(t *testing.T) {
	// Unknown model starts at dimension 0; the first successful batch
	// fixes it. Concurrent recorders and readers must agree.
	e := NewOpenAIEmbedder("sk-test", "some-future-model")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.recordDim(1536)
		}()
		go func() {
			defer wg.Done()
			if d := e.Dimension(); d != 0 && d != 1536 {
				t.Errorf("Dimension = %d, want 0 or 1536", d)
			}
		}()
	}
	wg.Wait()

	if got := e.Dimension(); got != 1536 {
		t.Errorf("Dimension after recording = %d, want 1536", got)
	}
}

func TestOpenAIEmbedderDimensionFirstRecordWins(t *testing.T) {
	e := NewOpenAIEmbedder("sk-test", "some-future-model")
	e.recordDim(1536)
	e.recordDim(3072)
	if got := e.Dimension(); got != 1536 {
		t.Errorf("Dimension = %d, want the first recorded value 1536", got)
	}

	// Zero-length results never record
	e2 := NewOpenAIEmbedder("sk-test", "some-future-model")
	e2.recordDim(0)
	if got := e2.Dimension(); got != 0 {
		t.Errorf("Dimension = %d, want 0 after empty record", got)
	}
}

func TestGeminiEmbedderDimensionConcurrentRecord(t *testing.T) {
	e := NewGeminiEmbedder("test-key", "")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.recordDim(3072)
		}()
		go func() {
			defer wg.Done()
			if d := e.Dimension(); d != 0 && d != 3072 {
				t.Errorf("Dimension = %d, want 0 or 3072", d)
			}
		}()
	}
	wg.Wait()

	if got := e.Dimension(); got != 3072 {
		t.Errorf("Dimension after recording = %d, want 3072", got)
	}
}
