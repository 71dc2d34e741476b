package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

type fakeOrchestrator struct {
	saga *domain.SagaTransaction
	err  error
}

func (f *fakeOrchestrator) StartSaga(ctx context.Context, orderData domain.OrderData) (*domain.SagaTransaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	saga := domain.NewSagaTransaction(orderData)
	return saga, nil
}

func TestCreateOrder_ValidRequestStartsSagaAndReturns200(t *testing.T) {
	h := NewHandler(&fakeOrchestrator{}, zerolog.Nop())
	body, _ := json.Marshal(CreateOrderRequest{
		CustomerID: uuid.New(), ProductID: uuid.New(), Quantity: 2, TotalAmount: 19.98,
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEqual(t, uuid.Nil, resp.OrderID)
	assert.NotEqual(t, uuid.Nil, resp.SagaID)
	assert.Equal(t, "started", resp.Status)
}

func TestCreateOrder_MissingFieldsReturns400(t *testing.T) {
	h := NewHandler(&fakeOrchestrator{}, zerolog.Nop())
	body, _ := json.Marshal(CreateOrderRequest{Quantity: 1, TotalAmount: 5})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_WrongMethodReturns405(t *testing.T) {
	h := NewHandler(&fakeOrchestrator{}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCreateOrder_OrchestratorErrorReturns500(t *testing.T) {
	h := NewHandler(&fakeOrchestrator{err: errors.New("store unavailable")}, zerolog.Nop())
	body, _ := json.Marshal(CreateOrderRequest{
		CustomerID: uuid.New(), ProductID: uuid.New(), Quantity: 1, TotalAmount: 9.99,
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthCheck_Returns200OK(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
