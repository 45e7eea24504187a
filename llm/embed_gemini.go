// Gemini Embedder implementation using official google.golang.org/genai SDK.

package llm

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// DefaultGeminiEmbeddingModel is the embedding model used when none is
// configured.
const DefaultGeminiEmbeddingModel = "gemini-embedding-001"

// GeminiEmbedder implements the Embedder interface using the Gemini API.
type GeminiEmbedder struct {
	client  *genai.Client
	model   string
	initErr error

	// mu guards dim; embedders are shared across concurrent Embed calls.
	mu  sync.RWMutex
	dim int
}

// NewGeminiEmbedder creates a new Gemini embedder. An empty model
// selects the default embedding model.
func NewGeminiEmbedder(apiKey, model string) *GeminiEmbedder {
	if model == "" {
		model = DefaultGeminiEmbeddingModel
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &GeminiEmbedder{
			model:   model,
			initErr: fmt.Errorf("failed to initialize Gemini client: %w", err),
		}
	}

	return &GeminiEmbedder{client: client, model: model}
}

// Name returns the provider name.
func (e *GeminiEmbedder) Name() string {
	return "gemini"
}

// Dimension returns the vector dimension, or 0 before the first call.
func (e *GeminiEmbedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dim
}

// recordDim fixes the dimension on the first successful embedding.
func (e *GeminiEmbedder) recordDim(n int) {
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
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch maps texts to vectors in input order.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if e.initErr != nil {
		return nil, &EmbeddingError{Provider: e.Name(), Err: e.initErr}
	}
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, &EmbeddingError{Provider: e.Name(), Err: err}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &EmbeddingError{
			Provider: e.Name(),
			Err:      fmt.Errorf("got %d embeddings for %d inputs", len(resp.Embeddings), len(texts)),
		}
	}

	vectors := make([][]float64, len(texts))
	for i, emb := range resp.Embeddings {
		vectors[i] = widen(emb.Values)
	}

	e.recordDim(len(vectors[0]))
	return vectors, nil
}

// Verify GeminiEmbedder implements Embedder
var _ Embedder = (*GeminiEmbedder)(nil)
