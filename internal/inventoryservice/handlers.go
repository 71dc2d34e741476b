package inventoryservice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/runtime"
)

// Handlers wires this participant's command handlers against store and
// outbox, ready to plug into a runtime.Runtime.
type Handlers struct {
	Store  Store
	Outbox OutboxWriter
}

// HandlerSet returns the command_type → handler table for the
// inventory participant, per spec §4.C's per-participant handler table.
func (h *Handlers) HandlerSet() map[domain.CommandType]runtime.HandlerFunc {
	return map[domain.CommandType]runtime.HandlerFunc{
		domain.CommandReserveInventory:    h.ReserveInventory,
		domain.CommandCompensateInventory: h.CompensateInventory,
	}
}

// ReserveInventory decrements available stock and increments reserved
// stock atomically, recording a reservation row. A prior reservation
// for the same (order, product) pair is replayed rather than retried.
func (h *Handlers) ReserveInventory(ctx context.Context, cmd domain.Command) (domain.CommandReply, error) {
	inventoryData, err := inventoryDataFromPayload(cmd.Payload)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("inventoryservice: decode ReserveInventory payload: %w", err)
	}

	if existing, found, err := h.Store.FindReservation(ctx, inventoryData.OrderID, inventoryData.ProductID); err != nil {
		return domain.CommandReply{}, fmt.Errorf("inventoryservice: lookup reservation for order %s: %w", inventoryData.OrderID, err)
	} else if found && existing.Status == ReservationReserved {
		return domain.SuccessReply(cmd.ID, cmd.SagaID, existing), nil
	}

	item, found, err := h.Store.FindInventory(ctx, inventoryData.ProductID)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("inventoryservice: lookup inventory for product %s: %w", inventoryData.ProductID, err)
	}
	if !found {
		return domain.FailedReply(cmd.ID, cmd.SagaID, "Product not found"), nil
	}
	if item.AvailableQty < inventoryData.Quantity {
		return domain.FailedReply(cmd.ID, cmd.SagaID, "Insufficient inventory"), nil
	}

	reservation := Reservation{
		ID:        uuid.New(),
		ProductID: inventoryData.ProductID,
		OrderID:   inventoryData.OrderID,
		Quantity:  inventoryData.Quantity,
		Status:    ReservationReserved,
	}
	if err := h.Store.Reserve(ctx, inventoryData.ProductID, inventoryData.Quantity, reservation); err != nil {
		return domain.CommandReply{}, fmt.Errorf("inventoryservice: reserve %d of product %s: %w", inventoryData.Quantity, inventoryData.ProductID, err)
	}

	eventPayload, err := json.Marshal(reservation)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("inventoryservice: encode InventoryReserved event: %w", err)
	}
	if err := h.Outbox.Insert(ctx, inventoryData.OrderID, "InventoryReserved", eventPayload); err != nil {
		return domain.CommandReply{}, fmt.Errorf("inventoryservice: append InventoryReserved event: %w", err)
	}

	return domain.SuccessReply(cmd.ID, cmd.SagaID, map[string]any{
		"reserved": true,
		"quantity": inventoryData.Quantity,
	}), nil
}

// CompensateInventory releases a reservation back into available
// stock. It always reports success, even when no reservation exists —
// the reserve step it compensates for may never have succeeded.
func (h *Handlers) CompensateInventory(ctx context.Context, cmd domain.Command) (domain.CommandReply, error) {
	inventoryData, err := inventoryDataFromPayload(cmd.Payload)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("inventoryservice: decode CompensateInventory payload: %w", err)
	}

	reservation, found, err := h.Store.FindReservation(ctx, inventoryData.OrderID, inventoryData.ProductID)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("inventoryservice: lookup reservation for order %s: %w", inventoryData.OrderID, err)
	}
	if found && reservation.Status == ReservationReserved {
		if err := h.Store.Release(ctx, reservation); err != nil {
			return domain.CommandReply{}, fmt.Errorf("inventoryservice: release reservation %s: %w", reservation.ID, err)
		}
	}

	return domain.SuccessReply(cmd.ID, cmd.SagaID, map[string]any{"compensated": true}), nil
}
