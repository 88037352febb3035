package alert

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/VinkRasengan/Warehouse-management-sub001/internal/httpx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", h.Health)

	r.Route("/api/alerts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/{alertId}/read", h.MarkRead)
		r.Post("/{alertId}/resolve", h.Resolve)
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	unresolvedOnly := r.URL.Query().Get("unresolved") == "true"
	alerts, err := h.svc.List(r.Context(), unresolvedOnly)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, alerts)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	err := h.svc.MarkRead(r.Context(), chi.URLParam(r, "alertId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "alert not found")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "marked read")
}

type resolveRequest struct {
	ResolvedBy string `json:"resolvedBy"`
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad request")
		return
	}

	err := h.svc.Resolve(r.Context(), chi.URLParam(r, "alertId"), req.ResolvedBy)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "alert not found")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "resolved")
}
