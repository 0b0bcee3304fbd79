package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/concilium-ai/concilium/internal/llm"
	"github.com/concilium-ai/concilium/internal/metrics"
)

const (
	defaultTopK      = 5
	defaultSeparator = "\n\n---\n\n"
)

// EngineConfig tunes ingestion and search behavior.
type EngineConfig struct {
	// TopK is the default number of results when the caller passes 0.
	TopK int
	// EmbedDelay paces per-chunk embedding calls during ingestion to
	// respect provider rate limits.
	EmbedDelay time.Duration
	// Separator joins context blocks in search results.
	Separator string
}

// DefaultEngineConfig returns engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TopK:      defaultTopK,
		Separator: defaultSeparator,
	}
}

// Engine is the retrieval engine: document lifecycle plus exhaustive
// cosine-similarity search over embedded chunks.
type Engine struct {
	store    Store
	embedder llm.Embedder
	chunker  Chunker
	config   EngineConfig
	logger   *logrus.Logger
}

// NewEngine creates a retrieval engine over the given store and embedder.
func NewEngine(store Store, embedder llm.Embedder, chunker Chunker, config EngineConfig, logger *logrus.Logger) *Engine {
	if chunker == nil {
		chunker = FixedWindowChunker{Window: defaultWindow, Overlap: defaultOverlap}
	}
	if config.TopK <= 0 {
		config.TopK = defaultTopK
	}
	if config.Separator == "" {
		config.Separator = defaultSeparator
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Engine{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		config:   config,
		logger:   logger,
	}
}

// Ingest chunks, embeds and persists a document. Ingestion is best-effort
// per chunk: a failed embedding is logged and skipped, never fatal.
// Re-ingesting an existing id replaces its previous entries.
func (e *Engine) Ingest(ctx context.Context, docID, title, content, source, category string) error {
	doc := Document{
		ID:         docID,
		Title:      title,
		Content:    content,
		Source:     source,
		Category:   category,
		UploadedAt: time.Now().UTC(),
	}
	if err := e.store.UpsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document %s: %w", docID, err)
	}

	// Replace semantics: drop entries from any earlier ingestion so a
	// shorter re-ingest leaves no stale chunks behind.
	if err := e.store.DeleteEntriesByDoc(ctx, docID); err != nil {
		return fmt.Errorf("failed to clear previous entries for %s: %w", docID, err)
	}

	chunks := e.chunker.Chunk(content)
	entries := make([]VectorEntry, 0, len(chunks))

	for i, chunk := range chunks {
		if i > 0 && e.config.EmbedDelay > 0 {
			select {
			case <-time.After(e.config.EmbedDelay):
			case <-ctx.Done():
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		embedding, err := e.embedder.Embed(ctx, chunk)
		if err != nil {
			e.logger.WithError(err).WithFields(logrus.Fields{
				"doc_id": docID,
				"chunk":  i,
			}).Warn("Skipping chunk: embedding failed")
			continue
		}

		entries = append(entries, VectorEntry{
			ID:         fmt.Sprintf("%s_%d", docID, i),
			DocID:      docID,
			ChunkIndex: i,
			Text:       chunk,
			Embedding:  embedding,
			Metadata:   EntryMetadata{Title: title, Source: source, Category: category},
		})
	}

	if err := e.store.UpsertEntries(ctx, entries); err != nil {
		return fmt.Errorf("failed to store entries for %s: %w", docID, err)
	}

	metrics.DocumentsIngested.Inc()
	e.logger.WithFields(logrus.Fields{
		"doc_id":  docID,
		"chunks":  len(chunks),
		"indexed": len(entries),
	}).Info("Document ingested")
	return nil
}

// Remove deletes a document and all of its vector entries. Removing an
// unknown id is a no-op.
func (e *Engine) Remove(ctx context.Context, docID string) error {
	if err := e.store.DeleteEntriesByDoc(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete entries for %s: %w", docID, err)
	}
	if err := e.store.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", docID, err)
	}
	return nil
}

// Documents lists all stored documents.
func (e *Engine) Documents(ctx context.Context) ([]Document, error) {
	return e.store.ListDocuments(ctx)
}

// Search embeds the query, scores every stored entry by cosine similarity
// and assembles a grounding context from the top topK matches. Search
// never fails: an embedding error or an empty store yields the empty
// Result.
func (e *Engine) Search(ctx context.Context, query string, topK int) *Result {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
	}()

	empty := &Result{Context: "", Sources: []SourceRef{}, RelevanceScore: 0}
	if topK <= 0 {
		topK = e.config.TopK
	}

	queryEmbedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.WithError(err).Warn("Search degraded: query embedding failed")
		return empty
	}

	entries, err := e.store.Entries(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Search degraded: store read failed")
		return empty
	}
	if len(entries) == 0 {
		return empty
	}

	results := make([]SearchResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, SearchResult{
			Entry: entry,
			Score: CosineSimilarity(queryEmbedding, entry.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}

	var blocks []string
	var sources []SourceRef
	seen := make(map[string]bool)
	total := 0.0

	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", r.Entry.Metadata.Title, r.Entry.Text))

		key := r.Entry.Metadata.Title + "\x00" + r.Entry.Metadata.Source
		if !seen[key] {
			seen[key] = true
			sources = append(sources, SourceRef{Title: r.Entry.Metadata.Title, Source: r.Entry.Metadata.Source})
		}

		total += math.Max(0, r.Score)
	}

	return &Result{
		Context:        strings.Join(blocks, e.config.Separator),
		Sources:        sources,
		RelevanceScore: total / float64(len(results)),
	}
}

// CosineSimilarity returns dot(a,b)/(|a|·|b|), or 0 when the vectors
// differ in length or either has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
