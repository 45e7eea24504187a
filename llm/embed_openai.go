// OpenAI Embedder implementation using go-openai library.
//
// Information Hiding:
// - Embeddings API request/response format
// - float32 to float64 widening for index arithmetic

package llm

import (
	"context"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIEmbeddingModel is the embedding model used when none is
// configured.
const DefaultOpenAIEmbeddingModel = "text-embedding-3-small"

// Known dimensions for OpenAI embedding models.
var openaiEmbeddingDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder implements the Embedder interface using the OpenAI
// embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string

	// mu guards dim; embedders are shared across concurrent Embed calls.
	mu  sync.RWMutex
	dim int
}

// NewOpenAIEmbedder creates a new OpenAI embedder. An empty model
// selects the default embedding model.
func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	if model == "" {
		model = DefaultOpenAIEmbeddingModel
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
		dim:    openaiEmbeddingDims[model],
	}
}

// Name returns the provider name.
func (e *OpenAIEmbedder) Name() string {
	return "openai"
}

// Dimension returns the vector dimension, or 0 before the first call
// when the model is not a known one.
func (e *OpenAIEmbedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dim
}

// recordDim fixes the dimension on the first successful embedding.
func (e *OpenAIEmbedder) recordDim(n int) {
	if n == 0 {
		return
	}
	e.mu.Lock()
	if e.dim == 0 {
		e.dim = n
	}
	e.mu.Unlock()
}

// Embed maps a single text to a vector.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch maps texts to vectors in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, &EmbeddingError{Provider: e.Name(), Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &EmbeddingError{
			Provider: e.Name(),
			Err:      fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)),
		}
	}

	// The API may return data out of order; Index restores input order.
	vectors := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, &EmbeddingError{
				Provider: e.Name(),
				Err:      fmt.Errorf("embedding index %d out of range", d.Index),
			}
		}
		vectors[d.Index] = widen(d.Embedding)
	}

	e.recordDim(len(vectors[0]))
	return vectors, nil
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Verify OpenAIEmbedder implements Embedder
var _ Embedder = (*OpenAIEmbedder)(nil)
