// Package engine wires the pipeline: documents are split, embedded,
// and indexed at ingest time; at query time a retriever, the
// conversation memory, and the synthesizer answer one turn.
package engine

import (
	"context"
	"fmt"

	"github.com/docsage/docsage/document"
	"github.com/docsage/docsage/index"
	"github.com/docsage/docsage/llm"
	"github.com/docsage/docsage/split"
)

// Ingestor populates a vector index from raw documents.
type Ingestor struct {
	splitter *split.Splitter
	embedder llm.Embedder
	index    *index.Index
}

// NewIngestor creates an ingestor over the given splitter, embedder,
// and index.
func NewIngestor(splitter *split.Splitter, embedder llm.Embedder, ix *index.Index) *Ingestor {
	return &Ingestor{splitter: splitter, embedder: embedder, index: ix}
}

// Ingest splits, embeds, and indexes the documents, returning the
// number of chunks added. Each document's chunks are embedded in one
// batch before any of them is inserted, so a failed or cancelled
// embedding call leaves the index without partial additions for that
// document.
func (g *Ingestor) Ingest(ctx context.Context, docs []document.Document) (int, error) {
	total := 0
	for _, doc := range docs {
		chunks, err := g.splitter.Split(doc)
		if err != nil {
			return total, fmt.Errorf("engine: split document %s: %w", doc.ID, err)
		}
		if len(chunks) == 0 {
			continue
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		vectors, err := g.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return total, fmt.Errorf("engine: embed document %s: %w", doc.ID, err)
		}

		for i, c := range chunks {
			if err := g.index.Insert(c, vectors[i]); err != nil {
				return total, fmt.Errorf("engine: index chunk %d of document %s: %w", i, doc.ID, err)
			}
			total++
		}
	}
	return total, nil
}
