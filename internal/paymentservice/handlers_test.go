package paymentservice

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/outbox"
)

func newHandlers(randFloat func() float64) (*Handlers, *MemoryStore, *outbox.MemoryStore) {
	store := NewMemoryStore()
	ob := outbox.NewMemoryStore()
	return &Handlers{Store: store, Outbox: ob, RandFloat: randFloat}, store, ob
}

func newPaymentData() domain.PaymentData {
	return domain.PaymentData{OrderID: uuid.New(), Amount: 19.98, PaymentMethod: "credit_card"}
}

func TestProcessPayment_BelowSuccessRateSucceedsAndWritesOutboxEvent(t *testing.T) {
	h, store, ob := newHandlers(func() float64 { return 0.1 })
	paymentData := newPaymentData()
	cmd := domain.NewCommand(uuid.New(), domain.CommandProcessPayment, paymentData)

	reply, err := h.ProcessPayment(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, reply.Status)

	payment, ok, err := store.FindByOrderID(context.Background(), paymentData.OrderID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusProcessed, payment.Status)

	rows := ob.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "PaymentProcessed", rows[0].EventType)
}

func TestProcessPayment_AtOrAboveSuccessRateFails(t *testing.T) {
	h, store, ob := newHandlers(func() float64 { return successRate })
	paymentData := newPaymentData()
	cmd := domain.NewCommand(uuid.New(), domain.CommandProcessPayment, paymentData)

	reply, err := h.ProcessPayment(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, reply.Status)
	assert.Equal(t, "Payment processing failed", reply.Error)

	_, ok, err := store.FindByOrderID(context.Background(), paymentData.OrderID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, ob.Rows())
}

func TestProcessPayment_AlreadyProcessedReplaysCachedPaymentWithoutRetrying(t *testing.T) {
	calls := 0
	h, store, ob := newHandlers(func() float64 { calls++; return successRate })
	paymentData := newPaymentData()
	require.NoError(t, store.Insert(context.Background(), Payment{
		ID: uuid.New(), OrderID: paymentData.OrderID, Amount: paymentData.Amount,
		PaymentMethod: paymentData.PaymentMethod, Status: StatusProcessed,
	}))

	cmd := domain.NewCommand(uuid.New(), domain.CommandProcessPayment, paymentData)
	reply, err := h.ProcessPayment(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, reply.Status)
	assert.Zero(t, calls, "should not roll randomness for an already-processed payment")
	assert.Empty(t, ob.Rows())
}

func TestCompensatePayment_RefundsExistingPayment(t *testing.T) {
	h, store, _ := newHandlers(nil)
	paymentData := newPaymentData()
	require.NoError(t, store.Insert(context.Background(), Payment{
		ID: uuid.New(), OrderID: paymentData.OrderID, Amount: paymentData.Amount,
		PaymentMethod: paymentData.PaymentMethod, Status: StatusProcessed,
	}))

	cmd := domain.NewCommand(uuid.New(), domain.CommandCompensatePayment, paymentData)
	reply, err := h.CompensatePayment(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, reply.Status)

	payment, ok, err := store.FindByOrderID(context.Background(), paymentData.OrderID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusRefunded, payment.Status)
}

func TestCompensatePayment_NoExistingPaymentStillReportsSuccess(t *testing.T) {
	h, _, _ := newHandlers(nil)
	paymentData := newPaymentData()

	cmd := domain.NewCommand(uuid.New(), domain.CommandCompensatePayment, paymentData)
	reply, err := h.CompensatePayment(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, reply.Status)
}
