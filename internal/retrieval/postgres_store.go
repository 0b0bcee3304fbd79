package retrieval

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// PostgresStore is a PostgreSQL-backed store using pgx. Embeddings are
// stored as double precision arrays; scoring happens in process.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

// NewPostgresStore connects to the database at dsn and ensures the schema
// exists.
func NewPostgresStore(ctx context.Context, dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = logrus.New()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			source TEXT NOT NULL,
			category TEXT NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vector_entries (
			id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding DOUBLE PRECISION[] NOT NULL,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			category TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vector_entries_doc_id ON vector_entries(doc_id)`,
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	logger.Info("Connected to PostgreSQL store")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// UpsertDocument implements DocumentStore.
func (s *PostgresStore) UpsertDocument(ctx context.Context, doc Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, title, content, source, category, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			source = EXCLUDED.source,
			category = EXCLUDED.category,
			uploaded_at = EXCLUDED.uploaded_at`,
		doc.ID, doc.Title, doc.Content, doc.Source, doc.Category, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// DeleteDocument implements DocumentStore.
func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// GetDocument implements DocumentStore.
func (s *PostgresStore) GetDocument(ctx context.Context, id string) (Document, bool, error) {
	var doc Document
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, content, source, category, uploaded_at
		FROM documents WHERE id = $1`, id).
		Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Source, &doc.Category, &doc.UploadedAt)
	if err == pgx.ErrNoRows {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, true, nil
}

// ListDocuments implements DocumentStore.
func (s *PostgresStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, content, source, category, uploaded_at
		FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

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
func (s *PostgresStore) UpsertEntries(ctx context.Context, entries []VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO vector_entries (id, doc_id, chunk_index, text, embedding, title, source, category)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				doc_id = EXCLUDED.doc_id,
				chunk_index = EXCLUDED.chunk_index,
				text = EXCLUDED.text,
				embedding = EXCLUDED.embedding,
				title = EXCLUDED.title,
				source = EXCLUDED.source,
				category = EXCLUDED.category`,
			e.ID, e.DocID, e.ChunkIndex, e.Text, e.Embedding,
			e.Metadata.Title, e.Metadata.Source, e.Metadata.Category)
		if err != nil {
			return fmt.Errorf("failed to upsert entry %s: %w", e.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// DeleteEntriesByDoc implements VectorStore.
func (s *PostgresStore) DeleteEntriesByDoc(ctx context.Context, docID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM vector_entries WHERE doc_id = $1`, docID); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return nil
}

// Entries implements VectorStore.
func (s *PostgresStore) Entries(ctx context.Context) ([]VectorEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doc_id, chunk_index, text, embedding, title, source, category
		FROM vector_entries ORDER BY doc_id, chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []VectorEntry
	for rows.Next() {
		var e VectorEntry
		if err := rows.Scan(&e.ID, &e.DocID, &e.ChunkIndex, &e.Text, &e.Embedding,
			&e.Metadata.Title, &e.Metadata.Source, &e.Metadata.Category); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountEntries implements VectorStore.
func (s *PostgresStore) CountEntries(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vector_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
