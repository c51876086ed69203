// Package storefront is the HTTP boundary the display and checkout layers
// consume. It translates requests into cart engine operations and engine
// errors into mutation results; it renders nothing.
package storefront

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
	"github.com/PabloPachecoB/pizza4u/internal/engine"
)

type Handler struct {
	sessions *Sessions
	log      *zap.Logger
}

func NewHandler(sessions *Sessions, log *zap.Logger) *Handler {
	return &Handler{sessions: sessions, log: log}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(OwnerMiddleware)

	r.Get("/cart", h.GetCart)
	r.Get("/cart/summary", h.GetSummary)
	r.Post("/cart/items", h.AddItem)
	r.Put("/cart/items/{itemKey}", h.UpdateQuantity)
	r.Delete("/cart/items/{itemKey}", h.RemoveItem)
	r.Delete("/cart", h.ClearCart)
	r.Post("/cart/discount", h.ApplyDiscount)
	r.Delete("/cart/discount", h.RemoveDiscount)

	return r
}

type cartView struct {
	Items    []domain.CartItem  `json:"items"`
	Discount *domain.Discount   `json:"discount,omitempty"`
	Summary  domain.CartSummary `json:"summary"`
}

type mutationResult struct {
	Success  bool               `json:"success"`
	Message  string             `json:"message,omitempty"`
	Quantity int                `json:"quantity,omitempty"`
	Summary  domain.CartSummary `json:"summary"`
}

type addItemRequest struct {
	Product        domain.Product    `json:"product"`
	Quantity       int               `json:"quantity"`
	Customizations map[string]string `json:"customizations,omitempty"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type applyDiscountRequest struct {
	Code string `json:"code"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, cartView{Items: e.Items(), Discount: e.Discount(), Summary: e.Summary()})
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, e.Summary())
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid JSON body", e.Summary())
		return
	}

	qty, summary, err := e.AddItem(r.Context(), req.Product, req.Quantity, req.Customizations)
	if err != nil {
		h.respondEngineError(w, err, summary)
		return
	}
	respondJSON(w, http.StatusCreated, mutationResult{Success: true, Quantity: qty, Summary: summary})
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid JSON body", e.Summary())
		return
	}

	summary, err := e.UpdateQuantity(r.Context(), chi.URLParam(r, "itemKey"), req.Quantity)
	if err != nil {
		h.respondEngineError(w, err, summary)
		return
	}
	respondJSON(w, http.StatusOK, mutationResult{Success: true, Summary: summary})
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}

	summary, err := e.RemoveItem(r.Context(), chi.URLParam(r, "itemKey"))
	if err != nil {
		h.respondEngineError(w, err, summary)
		return
	}
	respondJSON(w, http.StatusOK, mutationResult{Success: true, Summary: summary})
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, mutationResult{Success: true, Summary: e.ClearCart(r.Context())})
}

func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req applyDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid JSON body", e.Summary())
		return
	}

	summary, err := e.ApplyDiscount(r.Context(), req.Code)
	if err != nil {
		h.respondEngineError(w, err, summary)
		return
	}
	respondJSON(w, http.StatusOK, mutationResult{Success: true, Summary: summary})
}

func (h *Handler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, mutationResult{Success: true, Summary: e.RemoveDiscount(r.Context())})
}

func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	o, ok := ownerFromContext(r.Context())
	if !ok {
		respondFailure(w, http.StatusInternalServerError, "owner not resolved", domain.CartSummary{})
		return nil, false
	}

	e, err := h.sessions.Engine(r.Context(), o.id, o.authenticated)
	if err != nil {
		h.log.Error("cart hydration failed",
			zap.String("owner", o.id),
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err))
		respondFailure(w, http.StatusInternalServerError, "cart unavailable", domain.CartSummary{})
		return nil, false
	}
	return e, true
}

func (h *Handler) respondEngineError(w http.ResponseWriter, err error, summary domain.CartSummary) {
	var derr *engine.DiscountError
	switch {
	case errors.Is(err, engine.ErrMissingProduct), errors.Is(err, engine.ErrInvalidQuantity):
		respondFailure(w, http.StatusBadRequest, err.Error(), summary)
	case errors.Is(err, engine.ErrItemNotFound):
		respondFailure(w, http.StatusNotFound, err.Error(), summary)
	case errors.As(err, &derr):
		respondFailure(w, http.StatusUnprocessableEntity, derr.Message, summary)
	default:
		h.log.Error("cart operation failed", zap.Error(err))
		respondFailure(w, http.StatusInternalServerError, "internal error", summary)
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondFailure(w http.ResponseWriter, status int, msg string, summary domain.CartSummary) {
	respondJSON(w, status, mutationResult{Success: false, Message: msg, Summary: summary})
}
