package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderData is the payload carried by CreateOrder and echoed through the
// saga context for the lifetime of the transaction.
//
// TotalAmount is intentionally a JSON number rather than a string: every
// participant that round-trips this payload through Kafka must see the
// same float it was given, even though that makes it lossy for large
// amounts. See the design notes on money representation.
type OrderData struct {
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int32     `json:"quantity"`
	TotalAmount float64   `json:"total_amount"`
}

const defaultPaymentMethod = "credit_card"

// PaymentData is the payload carried by ProcessPayment/CompensatePayment.
type PaymentData struct {
	OrderID       uuid.UUID `json:"order_id"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
}

// InventoryData is the payload carried by ReserveInventory/CompensateInventory.
type InventoryData struct {
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
}

// OutboxEvent is a row in a service's transactional outbox: written in
// the same DB transaction as the domain change it describes, and
// published to the bus by the outbox poller once that transaction
// commits.
type OutboxEvent struct {
	ID          uuid.UUID `db:"id" json:"id"`
	AggregateID uuid.UUID `db:"aggregate_id" json:"aggregate_id"`
	EventType   string    `db:"event_type" json:"event_type"`
	Payload     []byte    `db:"payload" json:"payload"`
	Processed   bool      `db:"processed" json:"processed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ProcessedCommand is a row recording that a command's idempotency key
// has already been handled, so a redelivered command is a no-op. Result
// is the reply payload produced the first time, replayed verbatim on
// every subsequent delivery of the same key.
type ProcessedCommand struct {
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key"`
	CommandID      uuid.UUID `db:"command_id" json:"command_id"`
	Result         []byte    `db:"result" json:"result,omitempty"`
	ProcessedAt    time.Time `db:"processed_at" json:"processed_at"`
}

// DecodePayload decodes a Command's Payload field into T. Participant
// handlers call this once at the top of each handler.
func DecodePayload[T any](v any) (T, error) {
	return decodeInto[T](v)
}

// decodeInto converts v — either already a T, or the map[string]any /
// json.Number shape produced by decoding an any-typed field — into a T.
// Saga context values arrive in the first shape right after
// construction and in the second shape after any JSON round trip
// through storage or the bus, so every reader has to handle both.
func decodeInto[T any](v any) (T, error) {
	var zero T
	if t, ok := v.(T); ok {
		return t, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("decodeInto: marshal intermediate: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("decodeInto: unmarshal into %T: %w", out, err)
	}
	return out, nil
}
