package retrieve

import (
	"context"

	"github.com/docsage/docsage/index"
	"github.com/docsage/docsage/llm"
)

// Dense retrieves by embedding the query and running a nearest-neighbor
// search against the index.
type Dense struct {
	embedder llm.Embedder
	index    *index.Index
}

// NewDense creates a dense similarity retriever.
func NewDense(embedder llm.Embedder, ix *index.Index) *Dense {
	return &Dense{embedder: embedder, index: ix}
}

// Retrieve embeds the query text and returns the k most similar chunks.
func (d *Dense) Retrieve(ctx context.Context, query string, k int) ([]index.Result, error) {
	vector, err := d.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &Error{Op: "embed query", Err: err}
	}

	results, err := d.index.Query(vector, k)
	if err != nil {
		return nil, &Error{Op: "query index", Err: err}
	}
	return results, nil
}

// Verify Dense implements Retriever
var _ Retriever = (*Dense)(nil)
