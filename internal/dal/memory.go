package dal

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store using in-memory storage
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]memDoc // kind -> key -> doc
	seq  int64
}

type memDoc struct {
	data []byte
	seq  int64
}

// NewMemoryStore creates a new in-memory document store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]memDoc),
	}
}

func (m *MemoryStore) Get(ctx context.Context, kind, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[kind][NormalizeKey(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(doc.data), nil
}

func (m *MemoryStore) Put(ctx context.Context, docs ...Document) error {
	if err := checkDocs(docs); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range docs {
		byKey, ok := m.docs[d.Kind]
		if !ok {
			byKey = make(map[string]memDoc)
			m.docs[d.Kind] = byKey
		}
		key := NormalizeKey(d.Key)
		existing, exists := byKey[key]
		seq := existing.seq
		if !exists {
			m.seq++
			seq = m.seq
		}
		byKey[key] = memDoc{data: cloneBytes(d.Data), seq: seq}
	}
	return nil
}

func (m *MemoryStore) Latest(ctx context.Context, kind string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		latest Document
		best   int64 = -1
	)
	for key, doc := range m.docs[kind] {
		if doc.seq > best {
			best = doc.seq
			latest = Document{Kind: kind, Key: key, Data: cloneBytes(doc.data)}
		}
	}
	if best < 0 {
		return Document{}, ErrNotFound
	}
	return latest, nil
}

func (m *MemoryStore) List(ctx context.Context, kind string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type entry struct {
		key string
		doc memDoc
	}
	entries := make([]entry, 0, len(m.docs[kind]))
	for key, doc := range m.docs[kind] {
		entries = append(entries, entry{key, doc})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].doc.seq < entries[j].doc.seq })

	out := make([]Document, len(entries))
	for i, e := range entries {
		out[i] = Document{Kind: kind, Key: e.key, Data: cloneBytes(e.doc.data)}
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
