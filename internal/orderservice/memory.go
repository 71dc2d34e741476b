package orderservice

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]Order
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[uuid.UUID]Order)}
}

func (m *MemoryStore) Insert(ctx context.Context, order Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("orderservice: order %s not found", orderID)
	}
	order.Status = status
	m.orders[orderID] = order
	return nil
}

// Get returns a snapshot of the order, for assertions.
func (m *MemoryStore) Get(orderID uuid.UUID) (Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	return o, ok
}
