package orderservice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/runtime"
)

// Handlers wires this participant's command handlers against store and
// outbox, ready to plug into a runtime.Runtime.
type Handlers struct {
	Store  Store
	Outbox OutboxWriter
}

// HandlerSet returns the command_type → handler table for the order
// participant, per spec §4.C's per-participant handler table.
func (h *Handlers) HandlerSet() map[domain.CommandType]runtime.HandlerFunc {
	return map[domain.CommandType]runtime.HandlerFunc{
		domain.CommandCreateOrder:  h.CreateOrder,
		domain.CommandApproveOrder: h.ApproveOrder,
		domain.CommandCancelOrder:  h.CancelOrder,
	}
}

// CreateOrder inserts the order row and an OrderCreated outbox event in
// the same transaction.
func (h *Handlers) CreateOrder(ctx context.Context, cmd domain.Command) (domain.CommandReply, error) {
	orderData, err := orderDataFromPayload(cmd.Payload)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("orderservice: decode CreateOrder payload: %w", err)
	}

	order := Order{
		ID:          orderData.OrderID,
		CustomerID:  orderData.CustomerID,
		ProductID:   orderData.ProductID,
		Quantity:    orderData.Quantity,
		TotalAmount: orderData.TotalAmount,
		Status:      StatusCreated,
	}
	if err := h.Store.Insert(ctx, order); err != nil {
		return domain.CommandReply{}, fmt.Errorf("orderservice: insert order %s: %w", order.ID, err)
	}

	eventPayload, err := json.Marshal(orderData)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("orderservice: encode OrderCreated event: %w", err)
	}
	if err := h.Outbox.Insert(ctx, orderData.OrderID, "OrderCreated", eventPayload); err != nil {
		return domain.CommandReply{}, fmt.Errorf("orderservice: append OrderCreated event: %w", err)
	}

	return domain.SuccessReply(cmd.ID, cmd.SagaID, orderData), nil
}

// ApproveOrder marks the order approved — the terminal forward step,
// with no compensation.
func (h *Handlers) ApproveOrder(ctx context.Context, cmd domain.Command) (domain.CommandReply, error) {
	orderData, err := orderDataFromPayload(cmd.Payload)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("orderservice: decode ApproveOrder payload: %w", err)
	}
	if err := h.Store.UpdateStatus(ctx, orderData.OrderID, StatusApproved); err != nil {
		return domain.CommandReply{}, fmt.Errorf("orderservice: approve order %s: %w", orderData.OrderID, err)
	}
	return domain.SuccessReply(cmd.ID, cmd.SagaID, orderData), nil
}

// CancelOrder is CreateOrder's compensation: marks the order cancelled.
func (h *Handlers) CancelOrder(ctx context.Context, cmd domain.Command) (domain.CommandReply, error) {
	orderData, err := orderDataFromPayload(cmd.Payload)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("orderservice: decode CancelOrder payload: %w", err)
	}
	if err := h.Store.UpdateStatus(ctx, orderData.OrderID, StatusCancelled); err != nil {
		return domain.CommandReply{}, fmt.Errorf("orderservice: cancel order %s: %w", orderData.OrderID, err)
	}
	return domain.SuccessReply(cmd.ID, cmd.SagaID, orderData), nil
}
