// Package retrieval provides an in-process vector database: chunking,
// embedding-backed ingestion, exhaustive cosine-similarity search, and a
// document/vector lifecycle with cascade deletion.
package retrieval

import (
	"context"
	"time"
)

// Document is one ingested source document.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Category   string    `json:"category"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// EntryMetadata carries document provenance on each vector entry.
type EntryMetadata struct {
	Title    string `json:"title"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

// VectorEntry is one embedded chunk of a document. Entries are keyed
// "<docID>_<chunkIndex>" and cascade-deleted with their document.
type VectorEntry struct {
	ID         string        `json:"id"`
	DocID      string        `json:"doc_id"`
	ChunkIndex int           `json:"chunk_index"`
	Text       string        `json:"text"`
	Embedding  []float64     `json:"embedding"`
	Metadata   EntryMetadata `json:"metadata"`
}

// SearchResult pairs a vector entry with its similarity score.
type SearchResult struct {
	Entry VectorEntry `json:"entry"`
	Score float64     `json:"score"`
}

// SourceRef identifies a contributing document in a search result.
type SourceRef struct {
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Result is the grounding context produced by a search. A failed or empty
// search yields the zero-valued Result, never an error.
type Result struct {
	Context        string      `json:"context"`
	Sources        []SourceRef `json:"sources"`
	RelevanceScore float64     `json:"relevance_score"`
}

// DocumentStore persists documents with upsert-by-id semantics.
type DocumentStore interface {
	UpsertDocument(ctx context.Context, doc Document) error
	DeleteDocument(ctx context.Context, id string) error
	GetDocument(ctx context.Context, id string) (Document, bool, error)
	ListDocuments(ctx context.Context) ([]Document, error)
}

// VectorStore persists vector entries with upsert-by-id semantics.
// Entries must return a consistent snapshot safe to read concurrently
// with ingestion.
type VectorStore interface {
	UpsertEntries(ctx context.Context, entries []VectorEntry) error
	DeleteEntriesByDoc(ctx context.Context, docID string) error
	Entries(ctx context.Context) ([]VectorEntry, error)
	CountEntries(ctx context.Context) (int, error)
}

// Store is a combined document and vector store backend.
type Store interface {
	DocumentStore
	VectorStore
	Close() error
}
