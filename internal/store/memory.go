package store

import (
	"context"
	"sync"
)

// MemoryStore keeps documents in insertion order. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []*Document
	byID map[string]int
}

var _ DocumentStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding docs.
func NewMemoryStore(docs ...*Document) *MemoryStore {
	m := &MemoryStore{byID: make(map[string]int)}
	m.Put(docs...)
	return m
}

// Put inserts documents, replacing any with the same ID in place.
func (m *MemoryStore) Put(docs ...*Document) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range docs {
		if i, ok := m.byID[d.ID]; ok {
			m.docs[i] = d
			continue
		}
		m.byID[d.ID] = len(m.docs)
		m.docs = append(m.docs, d)
	}
}

// All returns every document in insertion order.
func (m *MemoryStore) All() []*Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Document, len(m.docs))
	copy(out, m.docs)
	return out
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryStore) FindBySubstring(ctx context.Context, fields []Field, tokens []string, f Filters, limit int) ([]*Document, error) {
	return m.scan(ctx, limit, func(d *Document) bool {
		return f.Matches(d) && ContainsAny(d, fields, tokens)
	})
}

func (m *MemoryStore) FindByFilter(ctx context.Context, f Filters, limit int) ([]*Document, error) {
	return m.scan(ctx, limit, f.Matches)
}

func (m *MemoryStore) scan(ctx context.Context, limit int, keep func(*Document) bool) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Document, 0)
	for _, d := range m.docs {
		if keep(d) {
			out = append(out, d)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
