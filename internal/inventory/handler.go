package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/VinkRasengan/Warehouse-management-sub001/internal/httpx"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", h.Health)

	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/check/{productId}", h.CheckStock)
		r.Get("/{productId}", h.GetItem)
		r.Get("/{productId}/movements", h.ListMovements)
		r.Post("/reserve", h.Reserve)
		r.Post("/release", h.Release)
		r.Post("/commit", h.Commit)
		r.Post("/adjust", h.Adjust)
		r.Put("/{productId}", h.UpsertItem)
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.ledger.Get(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "item not found")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) CheckStock(w http.ResponseWriter, r *http.Request) {
	qty, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || qty <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "quantity must be a positive integer")
		return
	}

	available, err := h.ledger.CheckStock(r.Context(), chi.URLParam(r, "productId"), qty)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.ledger.Movements(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, movements)
}

type reserveRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Reference string `json:"reference"`
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "productId and positive quantity required")
		return
	}

	ok, err := h.ledger.Reserve(r.Context(), req.ProductID, req.Quantity, req.Reference, correlationID(r.Context()))
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		httpx.WriteError(w, http.StatusConflict, "insufficient stock")
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "reserved")
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "productId and positive quantity required")
		return
	}

	if err := h.ledger.Release(r.Context(), req.ProductID, req.Quantity, req.Reference); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "released")
}

// Commit turns a reservation into an on-hand decrement, the manual
// counterpart of consuming an OrderShipped event.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "productId and positive quantity required")
		return
	}

	ok, err := h.ledger.Commit(r.Context(), req.ProductID, req.Quantity, req.Reference, correlationID(r.Context()))
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		httpx.WriteError(w, http.StatusConflict, "not enough reserved stock")
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "committed")
}

type adjustRequest struct {
	ProductID string `json:"productId"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
	CreatedBy string `json:"createdBy"`
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.ProductID == "" || req.Delta == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "productId and non-zero delta required")
		return
	}

	item, err := h.ledger.Adjust(r.Context(), req.ProductID, req.Delta, req.Reason, req.CreatedBy, correlationID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "item not found")
			return
		}
		if errors.Is(err, ErrShortStock) {
			httpx.WriteError(w, http.StatusConflict, "adjustment would make stock negative")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

type upsertRequest struct {
	Quantity     int    `json:"quantity"`
	MinimumStock int    `json:"minimumStock"`
	MaximumStock int    `json:"maximumStock"`
	Location     string `json:"location"`
}

func (h *Handler) UpsertItem(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.Quantity < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}

	item := Item{
		ProductID:    chi.URLParam(r, "productId"),
		Quantity:     req.Quantity,
		MinimumStock: req.MinimumStock,
		MaximumStock: req.MaximumStock,
		Location:     req.Location,
	}
	if err := h.ledger.Upsert(r.Context(), item); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func correlationID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
