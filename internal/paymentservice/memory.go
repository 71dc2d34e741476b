package paymentservice

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	byOrder map[uuid.UUID]Payment
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byOrder: make(map[uuid.UUID]Payment)}
}

func (m *MemoryStore) FindByOrderID(ctx context.Context, orderID uuid.UUID) (Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byOrder[orderID]
	return p, ok, nil
}

func (m *MemoryStore) Insert(ctx context.Context, payment Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byOrder[payment.OrderID] = payment
	return nil
}

func (m *MemoryStore) RefundByOrderID(ctx context.Context, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byOrder[orderID]
	if !ok {
		return nil
	}
	p.Status = StatusRefunded
	m.byOrder[orderID] = p
	return nil
}
