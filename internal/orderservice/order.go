// Package orderservice implements the order participant: the CreateOrder,
// ApproveOrder and CancelOrder command handlers and their own orders
// table, grounded on order-service/src/handlers.rs of the original
// system this module's saga plan was distilled from.
package orderservice

import (
	"context"

	"github.com/google/uuid"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// Order is the order participant's own row shape, independent of the
// wire-level OrderData payload.
type Order struct {
	ID          uuid.UUID `db:"id"`
	CustomerID  uuid.UUID `db:"customer_id"`
	ProductID   uuid.UUID `db:"product_id"`
	Quantity    int32     `db:"quantity"`
	TotalAmount float64   `db:"total_amount"`
	Status      string    `db:"status"`
}

const (
	StatusCreated   = "created"
	StatusApproved  = "approved"
	StatusCancelled = "cancelled"
)

// Store is the order participant's persistence dependency.
type Store interface {
	Insert(ctx context.Context, order Order) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error
}

// OutboxWriter appends an outbox row in the same transaction as a
// domain mutation.
type OutboxWriter interface {
	Insert(ctx context.Context, aggregateID uuid.UUID, eventType string, payload []byte) error
}

func orderDataFromPayload(payload any) (domain.OrderData, error) {
	return domain.DecodePayload[domain.OrderData](payload)
}
