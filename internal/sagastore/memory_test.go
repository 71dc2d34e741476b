package sagastore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

func TestMemoryStore_CreateGetRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	order := domain.OrderData{CustomerID: uuid.New(), ProductID: uuid.New(), Quantity: 3, TotalAmount: 12.5}
	saga := domain.NewSagaTransaction(order)

	require.NoError(t, store.Create(context.Background(), saga))

	got, err := store.Get(context.Background(), saga.ID)
	require.NoError(t, err)
	assert.Equal(t, saga.ID, got.ID)
	assert.Equal(t, domain.SagaStarted, got.Status)

	gotOrder, err := got.OrderDataFromContext()
	require.NoError(t, err)
	assert.Equal(t, order, gotOrder)
}

func TestMemoryStore_Get_UnknownIDReturnsErrNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Update_PersistsAdvancedStep(t *testing.T) {
	store := NewMemoryStore()
	saga := domain.NewSagaTransaction(domain.OrderData{})
	require.NoError(t, store.Create(context.Background(), saga))

	saga.AdvanceStep()
	saga.Status = domain.SagaInProgress
	require.NoError(t, store.Update(context.Background(), saga))

	got, err := store.Get(context.Background(), saga.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStep)
	assert.Equal(t, domain.SagaInProgress, got.Status)
}

func TestMemoryStore_Update_UnknownIDReturnsErrNotFound(t *testing.T) {
	store := NewMemoryStore()
	saga := domain.NewSagaTransaction(domain.OrderData{})
	err := store.Update(context.Background(), saga)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CompensationPlanSurvivesRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	saga := domain.NewSagaTransaction(domain.OrderData{})
	saga.CurrentStep = 2
	saga.SetCompensationPlan(saga.CompensationSteps())
	require.NoError(t, store.Create(context.Background(), saga))

	got, err := store.Get(context.Background(), saga.ID)
	require.NoError(t, err)

	steps, idx, ok := got.CompensationPlan()
	require.True(t, ok)
	assert.Len(t, steps, 2)
	assert.Equal(t, 0, idx)
}
