// Package document provides the core data model for corpus content.
//
// A Document is an immutable unit of raw text produced by a loader.
// A Chunk is a bounded fragment of a Document produced by splitting;
// chunks are the unit of embedding and retrieval.
package document

import "github.com/google/uuid"

// Document is a unit of raw text plus arbitrary string metadata
// (source, title, section path). Documents are read-only after creation.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// New creates a document with a generated ID and a copy of the metadata.
func New(text string, metadata map[string]string) Document {
	return Document{
		ID:       uuid.New().String(),
		Text:     text,
		Metadata: copyMetadata(metadata),
	}
}

// Chunk is a fragment of a document. It owns a copy of its text and
// metadata inherited from the parent document, augmented with structural
// keys (section lineage). Chunks are immutable once produced.
type Chunk struct {
	ID         string
	DocumentID string
	Text       string
	Metadata   map[string]string
	// Seq is the chunk's position within its document's split output.
	Seq int
}

// NewChunk creates a chunk for the given document fragment.
func NewChunk(doc Document, text string, extra map[string]string, seq int) Chunk {
	meta := copyMetadata(doc.Metadata)
	for k, v := range extra {
		meta[k] = v
	}
	return Chunk{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		Text:       text,
		Metadata:   meta,
		Seq:        seq,
	}
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
