package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/VinkRasengan/Warehouse-management-sub001/internal/httpx"
)

type Handler struct {
	workflow *Workflow
}

func NewHandler(workflow *Workflow) *Handler {
	return &Handler{workflow: workflow}
}

func NewRouter(workflow *Workflow) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler)

	h := NewHandler(workflow)

	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/orders/{orderId}", h.GetOrder)
	mux.HandleFunc("GET /api/orders/number/{orderNumber}", h.GetOrderByNumber)
	mux.HandleFunc("GET /api/customers/{customerId}/orders", h.ListOrdersByCustomer)
	mux.HandleFunc("POST /api/orders/{orderId}/status", h.UpdateStatus)
	mux.HandleFunc("POST /api/orders/{orderId}/cancel", h.CancelOrder)

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "order-service",
	})
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	in.CorrelationID = r.Header.Get("X-Correlation-Id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.workflow.Create(ctx, in)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	if orderID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing orderId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.workflow.GetByID(ctx, orderID)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	orderNumber := r.PathValue("orderNumber")
	if orderNumber == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing orderNumber")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.workflow.GetByNumber(ctx, orderNumber)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) ListOrdersByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")
	if customerID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing customerId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.workflow.ListByCustomer(ctx, customerID)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

type statusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.workflow.UpdateStatus(ctx, orderID, req.Status)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.workflow.Cancel(ctx, orderID, req.Reason)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

// writeWorkflowError maps typed workflow failures onto the response envelope
// without leaking infrastructure details.
func writeWorkflowError(w http.ResponseWriter, err error) {
	var insufficientErr *InsufficientStockError
	var transitionErr *InvalidTransitionError

	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidItem):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrCustomerNotFound):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &insufficientErr):
		httpx.WriteError(w, http.StatusConflict, insufficientErr.Error())
	case errors.As(err, &transitionErr):
		httpx.WriteError(w, http.StatusConflict, transitionErr.Error())
	case errors.Is(err, ErrStaleStatus):
		httpx.WriteError(w, http.StatusConflict, "order changed concurrently, retry")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
