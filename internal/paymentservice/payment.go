// Package paymentservice implements the payment participant:
// ProcessPayment (simulated success at a fixed rate) and
// CompensatePayment, grounded on payment-service/src/handlers.rs of the
// original system this module's saga plan was distilled from.
package paymentservice

import (
	"context"

	"github.com/google/uuid"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// Payment is the payment participant's own row shape.
type Payment struct {
	ID            uuid.UUID `db:"id"`
	OrderID       uuid.UUID `db:"order_id"`
	Amount        float64   `db:"amount"`
	PaymentMethod string    `db:"payment_method"`
	Status        string    `db:"status"`
}

const (
	StatusProcessed = "processed"
	StatusRefunded  = "refunded"
)

// successRate matches the Rust original's fixed simulated success rate.
const successRate = 0.8

// Store is the payment participant's persistence dependency.
type Store interface {
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (Payment, bool, error)
	Insert(ctx context.Context, payment Payment) error
	RefundByOrderID(ctx context.Context, orderID uuid.UUID) error
}

// OutboxWriter appends an outbox row in the same transaction as a
// domain mutation.
type OutboxWriter interface {
	Insert(ctx context.Context, aggregateID uuid.UUID, eventType string, payload []byte) error
}

func paymentDataFromPayload(payload any) (domain.PaymentData, error) {
	return domain.DecodePayload[domain.PaymentData](payload)
}
