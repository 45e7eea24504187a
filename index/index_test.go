package index

import (
	"errors"
	"math"
	"testing"

	"github.com/docsage/docsage/document"
)

func chunk(id, text string, meta map[string]string) document.Chunk {
	return document.Chunk{ID: id, DocumentID: "doc", Text: text, Metadata: meta}
}

func TestIndexInsertAndQuery(t *testing.T) {
	ix := New()

	if err := ix.Insert(chunk("a", "alpha", nil), []float64{1, 0, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := ix.Insert(chunk("b", "beta", nil), []float64{0, 1, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := ix.Insert(chunk("c", "gamma", nil), []float64{0.9, 0.1, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	results, err := ix.Query([]float64{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "a" {
		t.Errorf("expected 'a' first, got %q", results[0].Chunk.ID)
	}
	if results[1].Chunk.ID != "c" {
		t.Errorf("expected 'c' second, got %q", results[1].Chunk.ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not in non-increasing score order")
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("expected score 1.0 for identical vector, got %f", results[0].Score)
	}
}

func TestIndexDimensionMismatch(t *testing.T) {
	ix := New()

	if err := ix.Insert(chunk("a", "alpha", nil), []float64{1, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := ix.Insert(chunk("b", "beta", nil), []float64{1, 0, 0})
	if err == nil {
		t.Fatal("expected error for mismatched dimension")
	}
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %T", err)
	}
	if dimErr.Want != 2 || dimErr.Got != 3 {
		t.Errorf("expected want=2 got=3, got want=%d got=%d", dimErr.Want, dimErr.Got)
	}

	// Index unchanged after the failed insert
	if ix.Len() != 1 {
		t.Errorf("expected 1 entry after failed insert, got %d", ix.Len())
	}

	if _, err := ix.Query([]float64{1, 0, 0}, 1); err == nil {
		t.Error("expected error for mismatched query dimension")
	}
}

func TestIndexRejectsEmptyVector(t *testing.T) {
	ix := New()
	if err := ix.Insert(chunk("a", "alpha", nil), nil); err == nil {
		t.Error("expected error for empty vector")
	}
}

func TestIndexTieBreakInsertionOrder(t *testing.T) {
	ix := New()

	if err := ix.Insert(chunk("first", "same", nil), []float64{1, 1}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := ix.Insert(chunk("second", "same", nil), []float64{1, 1}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := ix.Insert(chunk("third", "same", nil), []float64{2, 2}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// All three have identical cosine similarity to the query
	results, err := ix.Query([]float64{1, 1}, 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if results[i].Chunk.ID != w {
			t.Errorf("position %d: expected %q, got %q", i, w, results[i].Chunk.ID)
		}
	}
}

func TestIndexQueryCapsAtLen(t *testing.T) {
	ix := New()
	if err := ix.Insert(chunk("a", "alpha", nil), []float64{1, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	results, err := ix.Query([]float64{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}

	results, err = ix.Query([]float64{1, 0}, 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for k=0, got %d", len(results))
	}
}

func TestIndexQueryFiltered(t *testing.T) {
	ix := New()

	if err := ix.Insert(chunk("a", "alpha", map[string]string{"lang": "en"}), []float64{1, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := ix.Insert(chunk("b", "beta", map[string]string{"lang": "de"}), []float64{1, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	results, err := ix.QueryFiltered([]float64{1, 0}, 5, func(c document.Chunk) bool {
		return c.Metadata["lang"] == "de"
	})
	if err != nil {
		t.Fatalf("QueryFiltered failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Chunk.ID != "b" {
		t.Errorf("expected 'b', got %q", results[0].Chunk.ID)
	}
}

func TestIndexVectorsReturnsCopies(t *testing.T) {
	ix := New()
	if err := ix.Insert(chunk("a", "alpha", nil), []float64{1, 2}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	_, vectors := ix.Vectors()
	vectors[0][0] = 99

	results, err := ix.Query([]float64{1, 2}, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Error("mutating Vectors() output changed stored vectors")
	}
}

func TestIndexInsertCopiesVector(t *testing.T) {
	ix := New()
	v := []float64{1, 0}
	if err := ix.Insert(chunk("a", "alpha", nil), v); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	v[0] = 0
	v[1] = 1

	results, err := ix.Query([]float64{1, 0}, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Error("mutating caller's vector changed stored vector")
	}
}

func TestIndexDimension(t *testing.T) {
	ix := New()
	if ix.Dimension() != 0 {
		t.Errorf("expected dimension 0 for empty index, got %d", ix.Dimension())
	}
	if err := ix.Insert(chunk("a", "alpha", nil), []float64{1, 0, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if ix.Dimension() != 3 {
		t.Errorf("expected dimension 3, got %d", ix.Dimension())
	}
}
