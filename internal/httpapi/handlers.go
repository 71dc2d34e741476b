// Package httpapi is the orchestrator's HTTP ingress: POST /orders
// starts a saga, GET /health reports liveness. Routing is a bare
// http.ServeMux, matching the teacher's stdlib-only api package rather
// than pulling in a router framework for two routes.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// SagaStarter is the orchestrator dependency this handler drives.
type SagaStarter interface {
	StartSaga(ctx context.Context, orderData domain.OrderData) (*domain.SagaTransaction, error)
}

// Handler serves the order ingress endpoints.
type Handler struct {
	orchestrator SagaStarter
	log          zerolog.Logger
}

// NewHandler wires a Handler against an orchestrator.
func NewHandler(orchestrator SagaStarter, log zerolog.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, log: log}
}

// Routes returns a ServeMux with this handler's endpoints registered.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", h.CreateOrder)
	mux.HandleFunc("/health", HealthCheck)
	return mux
}

// CreateOrderRequest is the HTTP request body for starting an order saga.
type CreateOrderRequest struct {
	CustomerID  uuid.UUID `json:"customer_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int32     `json:"quantity"`
	TotalAmount float64   `json:"total_amount"`
}

// CreateOrderResponse is the HTTP response for a started saga.
type CreateOrderResponse struct {
	OrderID uuid.UUID `json:"order_id"`
	SagaID  uuid.UUID `json:"saga_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// ErrorResponse is the HTTP response body for a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateOrder handles POST /orders: it generates the order ID at the
// ingress (the order itself is not persisted until the order
// participant handles CreateOrder), builds the saga context, and
// starts the saga.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CustomerID == uuid.Nil || req.ProductID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "customer_id and product_id are required")
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if req.TotalAmount <= 0 {
		writeError(w, http.StatusBadRequest, "total_amount must be positive")
		return
	}

	orderData := domain.OrderData{
		OrderID:     uuid.New(),
		CustomerID:  req.CustomerID,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		TotalAmount: req.TotalAmount,
	}

	saga, err := h.orchestrator.StartSaga(r.Context(), orderData)
	if err != nil {
		h.log.Error().Err(err).Str("order_id", orderData.OrderID.String()).Msg("failed to start order saga")
		writeError(w, http.StatusInternalServerError, "Failed to start order saga: "+err.Error())
		return
	}

	h.log.Info().Str("saga_id", saga.ID.String()).Str("order_id", orderData.OrderID.String()).Msg("started saga for order")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(CreateOrderResponse{
		OrderID: orderData.OrderID,
		SagaID:  saga.ID,
		Status:  "started",
		Message: "Order saga transaction has been initiated",
	})
}

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
