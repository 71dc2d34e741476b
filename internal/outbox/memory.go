package outbox

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// Writer is the half of Store participant handlers use to append a new
// row alongside their own domain mutation.
type Writer interface {
	Insert(ctx context.Context, aggregateID uuid.UUID, eventType string, payload []byte) error
}

// MemoryStore is an in-memory Store+Writer for tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows []domain.OutboxEvent
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(ctx context.Context, aggregateID uuid.UUID, eventType string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, domain.OutboxEvent{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		Processed:   false,
	})
	return nil
}

func (m *MemoryStore) LoadUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OutboxEvent
	for _, r := range m.rows {
		if !r.Processed {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range m.rows {
		if want[m.rows[i].ID] {
			m.rows[i].Processed = true
		}
	}
	return nil
}

// Rows returns a snapshot of all rows, for assertions.
func (m *MemoryStore) Rows() []domain.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutboxEvent(nil), m.rows...)
}
