// Package inventoryservice implements the inventory participant:
// ReserveInventory and CompensateInventory, grounded on
// inventory-service/src/handlers.rs of the original system this
// module's saga plan was distilled from.
package inventoryservice

import (
	"context"

	"github.com/google/uuid"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// Inventory is a product's available/reserved quantity counters.
type Inventory struct {
	ProductID    uuid.UUID `db:"product_id"`
	AvailableQty int32     `db:"available_quantity"`
	ReservedQty  int32     `db:"reserved_quantity"`
}

// Reservation records one ReserveInventory outcome for an (order,
// product) pair so a redelivered command can be answered without
// mutating the counters twice.
type Reservation struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	Quantity  int32     `json:"quantity" db:"quantity"`
	Status    string    `json:"status" db:"status"`
}

const (
	ReservationReserved  = "reserved"
	ReservationCancelled = "cancelled"
)

// Store is the inventory participant's persistence dependency.
type Store interface {
	FindInventory(ctx context.Context, productID uuid.UUID) (Inventory, bool, error)
	FindReservation(ctx context.Context, orderID, productID uuid.UUID) (Reservation, bool, error)
	Reserve(ctx context.Context, productID uuid.UUID, quantity int32, reservation Reservation) error
	Release(ctx context.Context, reservation Reservation) error
}

// OutboxWriter appends an outbox row in the same transaction as a
// domain mutation.
type OutboxWriter interface {
	Insert(ctx context.Context, aggregateID uuid.UUID, eventType string, payload []byte) error
}

func inventoryDataFromPayload(payload any) (domain.InventoryData, error) {
	return domain.DecodePayload[domain.InventoryData](payload)
}
