package orderservice

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/outbox"
)

func newHandlers() (*Handlers, *MemoryStore, *outbox.MemoryStore) {
	store := NewMemoryStore()
	ob := outbox.NewMemoryStore()
	return &Handlers{Store: store, Outbox: ob}, store, ob
}

func TestCreateOrder_InsertsOrderAndOutboxEvent(t *testing.T) {
	h, store, ob := newHandlers()
	orderData := domain.OrderData{OrderID: uuid.New(), CustomerID: uuid.New(), ProductID: uuid.New(), Quantity: 2, TotalAmount: 19.98}
	cmd := domain.NewCommand(uuid.New(), domain.CommandCreateOrder, orderData)

	reply, err := h.CreateOrder(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, reply.Status)

	order, ok := store.Get(orderData.OrderID)
	require.True(t, ok)
	assert.Equal(t, StatusCreated, order.Status)
	assert.Equal(t, orderData.CustomerID, order.CustomerID)

	rows := ob.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "OrderCreated", rows[0].EventType)
	assert.Equal(t, orderData.OrderID, rows[0].AggregateID)
}

func TestApproveOrder_SetsApprovedStatus(t *testing.T) {
	h, store, _ := newHandlers()
	orderData := domain.OrderData{OrderID: uuid.New()}
	require.NoError(t, store.Insert(context.Background(), Order{ID: orderData.OrderID, Status: StatusCreated}))

	cmd := domain.NewCommand(uuid.New(), domain.CommandApproveOrder, orderData)
	reply, err := h.ApproveOrder(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, reply.Status)

	order, ok := store.Get(orderData.OrderID)
	require.True(t, ok)
	assert.Equal(t, StatusApproved, order.Status)
}

func TestCancelOrder_SetsCancelledStatus(t *testing.T) {
	h, store, _ := newHandlers()
	orderData := domain.OrderData{OrderID: uuid.New()}
	require.NoError(t, store.Insert(context.Background(), Order{ID: orderData.OrderID, Status: StatusCreated}))

	cmd := domain.NewCommand(uuid.New(), domain.CommandCancelOrder, orderData)
	reply, err := h.CancelOrder(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, reply.Status)

	order, ok := store.Get(orderData.OrderID)
	require.True(t, ok)
	assert.Equal(t, StatusCancelled, order.Status)
}
