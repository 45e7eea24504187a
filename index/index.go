// Package index provides an in-memory vector index over document chunks.
//
// Information Hiding:
// - Vector storage layout hidden behind Insert/Query
// - Similarity measure and tie-breaking encapsulated
// - Thread-safe via RWMutex: serialized writes, concurrent reads
package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/docsage/docsage/document"
)

// Result pairs a chunk with its similarity score for a query. Higher
// scores are more similar.
type Result struct {
	Chunk document.Chunk
	Score float64
}

// DimensionError reports a vector whose dimension disagrees with the
// index's established dimension. It indicates misuse and is not retried.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("index: vector dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// entry is one stored (vector, chunk) pair. Insertion order is the
// deterministic tie-break for equal scores.
type entry struct {
	chunk  document.Chunk
	vector []float64
}

// Index is an append-only brute-force vector index using cosine
// similarity. The first insert establishes the dimension.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries []entry
}

// New creates an empty index. The dimension is fixed by the first insert.
func New() *Index {
	return &Index{}
}

// Insert adds a (chunk, vector) pair. Returns a DimensionError if the
// vector's dimension disagrees with previously inserted vectors.
func (ix *Index) Insert(chunk document.Chunk, vector []float64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim == 0 {
		if len(vector) == 0 {
			return &DimensionError{Want: 1, Got: 0}
		}
		ix.dim = len(vector)
	} else if len(vector) != ix.dim {
		return &DimensionError{Want: ix.dim, Got: len(vector)}
	}

	copied := make([]float64, len(vector))
	copy(copied, vector)
	ix.entries = append(ix.entries, entry{chunk: chunk, vector: copied})
	return nil
}

// Query returns up to k results ranked by non-increasing similarity.
func (ix *Index) Query(vector []float64, k int) ([]Result, error) {
	return ix.QueryFiltered(vector, k, nil)
}

// QueryFiltered returns up to k results whose chunks satisfy the
// predicate. A nil predicate admits every chunk.
func (ix *Index) QueryFiltered(vector []float64, k int, pred func(document.Chunk) bool) ([]Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.dim != 0 && len(vector) != ix.dim {
		return nil, &DimensionError{Want: ix.dim, Got: len(vector)}
	}
	if k <= 0 {
		return nil, nil
	}

	type scored struct {
		pos   int
		score float64
	}
	var candidates []scored
	for i, e := range ix.entries {
		if pred != nil && !pred(e.chunk) {
			continue
		}
		candidates = append(candidates, scored{pos: i, score: cosine(vector, e.vector)})
	}

	// Stable on insertion position: earlier entries win score ties.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]Result, 0, k)
	for _, c := range candidates[:k] {
		results = append(results, Result{Chunk: ix.entries[c.pos].chunk, Score: c.score})
	}
	return results, nil
}

// Len returns the number of stored entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dimension returns the established vector dimension, or 0 if empty.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Vectors returns a copy of all stored vectors in insertion order,
// paired with their chunks. Used by retrieval strategies that operate
// on the whole corpus embedding set.
func (ix *Index) Vectors() ([]document.Chunk, [][]float64) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	chunks := make([]document.Chunk, len(ix.entries))
	vectors := make([][]float64, len(ix.entries))
	for i, e := range ix.entries {
		chunks[i] = e.chunk
		v := make([]float64, len(e.vector))
		copy(v, e.vector)
		vectors[i] = v
	}
	return chunks, vectors
}

// cosine computes cosine similarity between two equal-length vectors.
func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
