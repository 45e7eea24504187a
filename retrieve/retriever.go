// Package retrieve provides retrieval strategies over the vector index.
//
// All strategies implement the Retriever interface and produce ranked
// chunks for a query text. Failures of the embedding or generation
// gateways are wrapped in *Error so callers can decide whether to retry
// or degrade; the underlying error kind is reachable via errors.Unwrap.
package retrieve

import (
	"context"
	"fmt"

	"github.com/docsage/docsage/index"
)

// Retriever is the common capability over retrieval strategies.
type Retriever interface {
	// Retrieve returns up to k chunks ranked by relevance to the query.
	Retrieve(ctx context.Context, query string, k int) ([]index.Result, error)
}

// Error wraps a failure raised from within a retriever. The cause keeps
// its original kind (EmbeddingError, GenerationError, DimensionError).
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("retrieve: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
