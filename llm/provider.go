// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for LLM providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
// Implementations hide provider-specific details while exposing
// a consistent interface for chat completions.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Chat sends a chat completion request.
	Chat(ctx context.Context, messages []ChatMessage) (Response, error)

	// ChatWithFormat sends a chat completion request with response format.
	ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (Response, error)
}

// Embedder defines the abstract interface for embedding providers.
// All vectors produced by one embedder share a fixed dimension.
type Embedder interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Dimension returns the dimension of produced vectors.
	Dimension() int

	// Embed maps text to a fixed-dimension vector.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch maps texts to vectors, preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}
