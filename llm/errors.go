package llm

import "fmt"

// GenerationError wraps a failure of a chat completion call against an
// external provider. Transport timeouts surface the same way as hard
// failures; callers decide whether to retry.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("llm: %s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// EmbeddingError wraps a failure of an embedding call against an
// external provider.
type EmbeddingError struct {
	Provider string
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("llm: %s embedding failed: %v", e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
