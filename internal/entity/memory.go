package entity

import (
	"context"
	"sort"
	"sync"

	"balancerScope/internal/model"
)

type rowKey struct {
	kind model.Kind
	id   string
}

// MemoryStore keeps entity documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[rowKey][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[rowKey][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, kind model.Kind, id string) ([]byte, bool, error) {
	m.mu.RLock()
	data, ok := m.rows[rowKey{kind: kind, id: id}]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *MemoryStore) Put(_ context.Context, kind model.Kind, id string, data []byte) error {
	m.mu.Lock()
	m.rows[rowKey{kind: kind, id: id}] = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

// IDs lists the ids stored under kind in ascending order.
func (m *MemoryStore) IDs(kind model.Kind) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0)
	for key := range m.rows {
		if key.kind == kind {
			ids = append(ids, key.id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of rows of kind.
func (m *MemoryStore) Count(kind model.Kind) int {
	return len(m.IDs(kind))
}

// WithinTx stages writes in an overlay and applies them only when fn succeeds.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	tx := &memoryTx{base: m, writes: make(map[rowKey][]byte)}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	for key, data := range tx.writes {
		m.rows[key] = data
	}
	m.mu.Unlock()
	return nil
}

type memoryTx struct {
	base   *MemoryStore
	writes map[rowKey][]byte
}

func (t *memoryTx) Get(ctx context.Context, kind model.Kind, id string) ([]byte, bool, error) {
	if data, ok := t.writes[rowKey{kind: kind, id: id}]; ok {
		return append([]byte(nil), data...), true, nil
	}
	return t.base.Get(ctx, kind, id)
}

func (t *memoryTx) Put(_ context.Context, kind model.Kind, id string, data []byte) error {
	t.writes[rowKey{kind: kind, id: id}] = append([]byte(nil), data...)
	return nil
}

var (
	_ Store      = (*MemoryStore)(nil)
	_ Transactor = (*MemoryStore)(nil)
)
