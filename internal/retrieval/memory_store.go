package retrieval

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process store backend. Reads hand out copied
// snapshots, so searches never observe a partially applied write.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]Document
	entries map[string]VectorEntry
	order   []string // entry insertion order, for stable snapshots
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[string]Document),
		entries: make(map[string]VectorEntry),
	}
}

// UpsertDocument implements DocumentStore.
func (s *MemoryStore) UpsertDocument(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

// DeleteDocument implements DocumentStore. Deleting an unknown id is a
// no-op.
func (s *MemoryStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// GetDocument implements DocumentStore.
func (s *MemoryStore) GetDocument(_ context.Context, id string) (Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok, nil
}

// ListDocuments implements DocumentStore.
func (s *MemoryStore) ListDocuments(_ context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// UpsertEntries implements VectorStore. The batch is applied atomically
// under the write lock: a concurrent snapshot sees all of it or none.
func (s *MemoryStore) UpsertEntries(_ context.Context, entries []VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if _, exists := s.entries[e.ID]; !exists {
			s.order = append(s.order, e.ID)
		}
		s.entries[e.ID] = e
	}
	return nil
}

// DeleteEntriesByDoc implements VectorStore.
func (s *MemoryStore) DeleteEntriesByDoc(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	for _, id := range s.order {
		if s.entries[id].DocID == docID {
			delete(s.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return nil
}

// Entries implements VectorStore, returning a copied snapshot in
// insertion order.
func (s *MemoryStore) Entries(_ context.Context) ([]VectorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]VectorEntry, 0, len(s.order))
	for _, id := range s.order {
		snapshot = append(snapshot, s.entries[id])
	}
	return snapshot, nil
}

// CountEntries implements VectorStore.
func (s *MemoryStore) CountEntries(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
