package document

import "testing"

func TestNewCopiesMetadata(t *testing.T) {
	meta := map[string]string{"source": "a.md"}
	doc := New("text", meta)

	if doc.ID == "" {
		t.Fatal("expected a generated ID")
	}
	if doc.Text != "text" {
		t.Errorf("expected text preserved, got %q", doc.Text)
	}

	meta["source"] = "mutated"
	if doc.Metadata["source"] != "a.md" {
		t.Error("document shares the caller's metadata map")
	}
}

func TestNewNilMetadata(t *testing.T) {
	doc := New("text", nil)
	if doc.Metadata == nil {
		t.Fatal("expected non-nil metadata map")
	}
	if len(doc.Metadata) != 0 {
		t.Errorf("expected empty metadata, got %v", doc.Metadata)
	}
}

func TestNewDistinctIDs(t *testing.T) {
	a := New("same text", nil)
	b := New("same text", nil)
	if a.ID == b.ID {
		t.Errorf("expected distinct IDs, both were %q", a.ID)
	}
}

func TestNewChunkMergesMetadata(t *testing.T) {
	doc := New("body", map[string]string{"source": "a.md", "lang": "en"})
	chunk := NewChunk(doc, "fragment", map[string]string{"section": "Intro", "lang": "de"}, 3)

	if chunk.DocumentID != doc.ID {
		t.Errorf("expected parent ID %q, got %q", doc.ID, chunk.DocumentID)
	}
	if chunk.Seq != 3 {
		t.Errorf("expected seq 3, got %d", chunk.Seq)
	}
	if chunk.Text != "fragment" {
		t.Errorf("expected fragment text, got %q", chunk.Text)
	}
	if chunk.Metadata["source"] != "a.md" {
		t.Error("chunk should inherit document metadata")
	}
	if chunk.Metadata["section"] != "Intro" {
		t.Error("chunk should carry structural metadata")
	}
	if chunk.Metadata["lang"] != "de" {
		t.Error("structural metadata should win on key collision")
	}
}

func TestNewChunkDoesNotMutateDocument(t *testing.T) {
	doc := New("body", map[string]string{"source": "a.md"})
	_ = NewChunk(doc, "fragment", map[string]string{"section": "Intro"}, 0)

	if _, ok := doc.Metadata["section"]; ok {
		t.Error("chunk creation leaked metadata into the document")
	}
}
