// Package idempotency guards command handling against at-least-once
// redelivery: a command whose idempotency key has already been
// recorded is treated as already handled rather than reapplied.
package idempotency

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// Store persists processed-command markers. Insert must run inside the
// same transaction as the domain mutation it guards, which
// implementations pick up from ctx via internal/dbctx.
type Store interface {
	Lookup(ctx context.Context, key string) (domain.ProcessedCommand, bool, error)
	// Insert records key as processed, along with the reply result a
	// future cache hit should replay. inserted is false when a
	// concurrent writer already holds the key (ON CONFLICT DO NOTHING
	// affected zero rows) rather than this call's own effect.
	Insert(ctx context.Context, key string, commandID uuid.UUID, result []byte) (inserted bool, err error)
}

// Guard wraps a Store with the check-then-reserve sequence. The
// participant runtime calls it inside the handler's transaction, after
// the handler has run, so a lost race can roll that handler's domain
// mutation back.
type Guard struct {
	store Store
}

// New builds a Guard over store.
func New(store Store) *Guard {
	return &Guard{store: store}
}

// Reserve attempts to claim key for commandID, storing result for any
// future cache hit. already is true when the key was already recorded
// by an earlier or concurrent call (this call's own successful insert
// reports false); existing then carries the row a caller should replay
// instead of re-executing its handler.
func (g *Guard) Reserve(ctx context.Context, key string, commandID uuid.UUID, result []byte) (existing domain.ProcessedCommand, already bool, err error) {
	if existing, found, err := g.store.Lookup(ctx, key); err != nil {
		return domain.ProcessedCommand{}, false, err
	} else if found {
		return existing, true, nil
	}

	inserted, err := g.store.Insert(ctx, key, commandID, result)
	if err != nil {
		return domain.ProcessedCommand{}, false, err
	}
	if inserted {
		return domain.ProcessedCommand{}, false, nil
	}

	// Lost the race: re-read rather than assume our own effect happened.
	existingRow, found, err := g.store.Lookup(ctx, key)
	if err != nil {
		return domain.ProcessedCommand{}, false, err
	}
	if found {
		return existingRow, true, nil
	}
	return domain.ProcessedCommand{}, false, nil
}

// memoryStore is a process-local Store used by tests.
type memoryStore struct {
	byKey map[string]domain.ProcessedCommand
}

// NewMemoryStore returns a Store backed by an in-memory map, for tests
// that exercise Guard without a database.
func NewMemoryStore() Store {
	return &memoryStore{byKey: make(map[string]domain.ProcessedCommand)}
}

func (m *memoryStore) Lookup(ctx context.Context, key string) (domain.ProcessedCommand, bool, error) {
	pc, ok := m.byKey[key]
	return pc, ok, nil
}

func (m *memoryStore) Insert(ctx context.Context, key string, commandID uuid.UUID, result []byte) (bool, error) {
	if _, exists := m.byKey[key]; exists {
		return false, nil
	}
	m.byKey[key] = domain.ProcessedCommand{
		IdempotencyKey: key,
		CommandID:      commandID,
		Result:         result,
		ProcessedAt:    time.Now().UTC(),
	}
	return true, nil
}
