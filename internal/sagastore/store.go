// Package sagastore persists SagaTransaction as a single mutable row,
// read-modify-write, rather than as an event-sourced aggregate: the
// orchestrator owns exactly one row per saga and the whole row changes
// together whenever the saga advances.
package sagastore

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// ErrNotFound is returned by Get when no saga with the given id exists.
var ErrNotFound = errors.New("sagastore: saga not found")

// Store is the orchestrator's sole persistence dependency.
type Store interface {
	Create(ctx context.Context, saga *domain.SagaTransaction) error
	Get(ctx context.Context, id uuid.UUID) (*domain.SagaTransaction, error)
	Update(ctx context.Context, saga *domain.SagaTransaction) error
}
