package sagastore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// MemoryStore is an in-memory Store for tests. It round-trips every
// saga through JSON on Create/Update, matching the lossy shape (plain
// maps, string-keyed context) a real database row would produce, so
// tests exercise the same decode path production code does.
type MemoryStore struct {
	mu    sync.Mutex
	sagas map[uuid.UUID][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sagas: make(map[uuid.UUID][]byte)}
}

func (m *MemoryStore) Create(ctx context.Context, saga *domain.SagaTransaction) error {
	raw, err := json.Marshal(saga)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sagas[saga.ID] = raw
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*domain.SagaTransaction, error) {
	m.mu.Lock()
	raw, ok := m.sagas[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	var saga domain.SagaTransaction
	if err := json.Unmarshal(raw, &saga); err != nil {
		return nil, err
	}
	return &saga, nil
}

func (m *MemoryStore) Update(ctx context.Context, saga *domain.SagaTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sagas[saga.ID]; !ok {
		return ErrNotFound
	}
	raw, err := json.Marshal(saga)
	if err != nil {
		return err
	}
	m.sagas[saga.ID] = raw
	return nil
}
