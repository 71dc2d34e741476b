package paymentservice

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/runtime"
)

// Handlers wires this participant's command handlers against store and
// outbox, ready to plug into a runtime.Runtime.
type Handlers struct {
	Store  Store
	Outbox OutboxWriter

	// RandFloat returns a value in [0, 1) and drives the simulated
	// payment outcome. Defaults to rand.Float64; overridden in tests.
	RandFloat func() float64
}

func (h *Handlers) randFloat() float64 {
	if h.RandFloat != nil {
		return h.RandFloat()
	}
	return rand.Float64()
}

// HandlerSet returns the command_type → handler table for the payment
// participant, per spec §4.C's per-participant handler table.
func (h *Handlers) HandlerSet() map[domain.CommandType]runtime.HandlerFunc {
	return map[domain.CommandType]runtime.HandlerFunc{
		domain.CommandProcessPayment:    h.ProcessPayment,
		domain.CommandCompensatePayment: h.CompensatePayment,
	}
}

// ProcessPayment simulates a payment outcome at a fixed success rate. A
// prior successful payment for the same order is replayed rather than
// reprocessed, since a command can reach here more than once despite
// the idempotency guard (e.g. a cache row written but not yet
// committed when a near-duplicate command was received).
func (h *Handlers) ProcessPayment(ctx context.Context, cmd domain.Command) (domain.CommandReply, error) {
	paymentData, err := paymentDataFromPayload(cmd.Payload)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("paymentservice: decode ProcessPayment payload: %w", err)
	}

	if existing, found, err := h.Store.FindByOrderID(ctx, paymentData.OrderID); err != nil {
		return domain.CommandReply{}, fmt.Errorf("paymentservice: lookup payment for order %s: %w", paymentData.OrderID, err)
	} else if found && existing.Status == StatusProcessed {
		return domain.SuccessReply(cmd.ID, cmd.SagaID, existing), nil
	}

	if h.randFloat() >= successRate {
		return domain.FailedReply(cmd.ID, cmd.SagaID, "Payment processing failed"), nil
	}

	payment := Payment{
		ID:            uuid.New(),
		OrderID:       paymentData.OrderID,
		Amount:        paymentData.Amount,
		PaymentMethod: paymentData.PaymentMethod,
		Status:        StatusProcessed,
	}
	if err := h.Store.Insert(ctx, payment); err != nil {
		return domain.CommandReply{}, fmt.Errorf("paymentservice: insert payment for order %s: %w", paymentData.OrderID, err)
	}

	eventPayload, err := json.Marshal(payment)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("paymentservice: encode PaymentProcessed event: %w", err)
	}
	if err := h.Outbox.Insert(ctx, paymentData.OrderID, "PaymentProcessed", eventPayload); err != nil {
		return domain.CommandReply{}, fmt.Errorf("paymentservice: append PaymentProcessed event: %w", err)
	}

	return domain.SuccessReply(cmd.ID, cmd.SagaID, payment), nil
}

// CompensatePayment refunds the payment tied to an order. It always
// reports success, even when no payment row exists for the order, in
// which case the refund updates nothing.
func (h *Handlers) CompensatePayment(ctx context.Context, cmd domain.Command) (domain.CommandReply, error) {
	paymentData, err := paymentDataFromPayload(cmd.Payload)
	if err != nil {
		return domain.CommandReply{}, fmt.Errorf("paymentservice: decode CompensatePayment payload: %w", err)
	}
	if err := h.Store.RefundByOrderID(ctx, paymentData.OrderID); err != nil {
		return domain.CommandReply{}, fmt.Errorf("paymentservice: refund payment for order %s: %w", paymentData.OrderID, err)
	}
	return domain.SuccessReply(cmd.ID, cmd.SagaID, map[string]any{"refunded": true}), nil
}
