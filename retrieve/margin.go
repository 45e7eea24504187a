package retrieve

import (
	"context"
	"sort"

	"github.com/docsage/docsage/index"
	"github.com/docsage/docsage/llm"
)

// Margin treats retrieval as binary classification: it fits a
// maximum-margin linear separator between the query embedding (positive
// class, weight boosted) and every corpus embedding (negative class),
// then ranks corpus chunks by signed distance from the separator. This
// can surface results ranked differently from plain cosine similarity.
//
// Training uses full-batch subgradient descent over a fixed example
// order, so the fit and therefore the ranking are deterministic.
type Margin struct {
	embedder llm.Embedder
	index    *index.Index

	epochs    int
	lambda    float64
	queryBoost float64
}

// NewMargin creates a linear-separator retriever with default training
// parameters.
func NewMargin(embedder llm.Embedder, ix *index.Index) *Margin {
	return &Margin{
		embedder:   embedder,
		index:      ix,
		epochs:     40,
		lambda:     0.01,
		queryBoost: 10,
	}
}

// Retrieve fits the separator for this query and returns the k corpus
// chunks farthest on the positive side, in strictly decreasing order of
// signed distance with insertion-order tie-breaking.
func (m *Margin) Retrieve(ctx context.Context, query string, k int) ([]index.Result, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &Error{Op: "embed query", Err: err}
	}

	chunks, vectors := m.index.Vectors()
	if len(vectors) == 0 {
		return nil, nil
	}

	w, b := m.fit(queryVec, vectors)

	type scored struct {
		pos   int
		score float64
	}
	candidates := make([]scored, len(vectors))
	for i, v := range vectors {
		candidates[i] = scored{pos: i, score: dot(w, v) + b}
	}
	// Stable on insertion position: earlier entries win score ties,
	// keeping the order strict and total.
	sort.SliceStable(candidates, func(a, c int) bool {
		return candidates[a].score > candidates[c].score
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]index.Result, 0, k)
	for _, c := range candidates[:k] {
		results = append(results, index.Result{Chunk: chunks[c.pos], Score: c.score})
	}
	return results, nil
}

// fit trains a soft-margin linear classifier with hinge loss. The query
// is the single positive example, weighted by queryBoost so it is not
// swamped by the negatives; all corpus vectors are negatives.
func (m *Margin) fit(query []float64, corpus [][]float64) ([]float64, float64) {
	dim := len(query)
	w := make([]float64, dim)
	b := 0.0

	t := 0
	for epoch := 0; epoch < m.epochs; epoch++ {
		// Positive example first, then negatives in insertion order.
		t++
		eta := 1 / (m.lambda * float64(t))
		if dot(w, query)+b < 1 {
			axpy(w, eta*m.queryBoost, query)
			b += eta * m.queryBoost
		}
		scale(w, 1-eta*m.lambda)

		for _, v := range corpus {
			t++
			eta = 1 / (m.lambda * float64(t))
			if -(dot(w, v) + b) < 1 {
				axpy(w, -eta, v)
				b -= eta
			}
			scale(w, 1-eta*m.lambda)
		}
	}
	return w, b
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// axpy adds alpha*x to w in place.
func axpy(w []float64, alpha float64, x []float64) {
	for i := range w {
		w[i] += alpha * x[i]
	}
}

func scale(w []float64, alpha float64) {
	for i := range w {
		w[i] *= alpha
	}
}

// Verify Margin implements Retriever
var _ Retriever = (*Margin)(nil)
