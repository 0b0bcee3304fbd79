package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a file-backed store using modernc.org/sqlite. Embeddings
// are stored as JSON arrays; the exhaustive scan happens in process, the
// database only persists.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Serialized access keeps concurrent ingest and search consistent.
	db.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			source TEXT NOT NULL,
			category TEXT NOT NULL,
			uploaded_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vector_entries (
			id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding TEXT NOT NULL,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			category TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vector_entries_doc_id ON vector_entries(doc_id)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// UpsertDocument implements DocumentStore.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, source, category, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			source = excluded.source,
			category = excluded.category,
			uploaded_at = excluded.uploaded_at`,
		doc.ID, doc.Title, doc.Content, doc.Source, doc.Category, doc.UploadedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// DeleteDocument implements DocumentStore.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// GetDocument implements DocumentStore.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (Document, bool, error) {
	var doc Document
	var uploadedAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, source, category, uploaded_at
		FROM documents WHERE id = ?`, id).
		Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Source, &doc.Category, &uploadedAt)
	if err == sql.ErrNoRows {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("failed to get document: %w", err)
	}
	doc.UploadedAt = uploadedAt
	return doc, true, nil
}

// ListDocuments implements DocumentStore.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, source, category, uploaded_at
		FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Source, &doc.Category, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpsertEntries implements VectorStore. The batch is written in one
// transaction so a concurrent read sees all of it or none.
func (s *SQLiteStore) UpsertEntries(ctx context.Context, entries []VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		embedding, err := json.Marshal(e.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO vector_entries (id, doc_id, chunk_index, text, embedding, title, source, category)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				doc_id = excluded.doc_id,
				chunk_index = excluded.chunk_index,
				text = excluded.text,
				embedding = excluded.embedding,
				title = excluded.title,
				source = excluded.source,
				category = excluded.category`,
			e.ID, e.DocID, e.ChunkIndex, e.Text, string(embedding),
			e.Metadata.Title, e.Metadata.Source, e.Metadata.Category)
		if err != nil {
			return fmt.Errorf("failed to upsert entry %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteEntriesByDoc implements VectorStore.
func (s *SQLiteStore) DeleteEntriesByDoc(ctx context.Context, docID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vector_entries WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return nil
}

// Entries implements VectorStore.
func (s *SQLiteStore) Entries(ctx context.Context) ([]VectorEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_id, chunk_index, text, embedding, title, source, category
		FROM vector_entries ORDER BY doc_id, chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []VectorEntry
	for rows.Next() {
		var e VectorEntry
		var embedding string
		if err := rows.Scan(&e.ID, &e.DocID, &e.ChunkIndex, &e.Text, &embedding,
			&e.Metadata.Title, &e.Metadata.Source, &e.Metadata.Category); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(embedding), &e.Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding for %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountEntries implements VectorStore.
func (s *SQLiteStore) CountEntries(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
