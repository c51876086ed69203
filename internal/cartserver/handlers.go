// Package cartserver is the remote cart service: the REST surface the
// storefront's remote store talks to. Snapshot upserts are version guarded,
// so overlapping writes from the same owner cannot land out of order.
package cartserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/PabloPachecoB/pizza4u/internal/cartserver/repository"
	"github.com/PabloPachecoB/pizza4u/internal/domain"
	"github.com/PabloPachecoB/pizza4u/internal/itemkey"
)

const ownerHeader = "X-Owner-ID"

type Server struct {
	repo   repository.SnapshotRepository
	promos map[string]domain.Discount
	maxQty int
	log    *zap.Logger
}

func NewServer(repo repository.SnapshotRepository, promos map[string]domain.Discount, maxQty int, log *zap.Logger) *Server {
	if maxQty <= 0 {
		maxQty = domain.DefaultConfig().MaxQuantityPerItem
	}
	return &Server{repo: repo, promos: promos, maxQty: maxQty, log: log}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/cart", s.GetCart)
	r.Put("/cart", s.PutCart)
	r.Post("/cart/add", s.AddItem)
	r.Put("/cart/update", s.UpdateQuantity)
	r.Delete("/cart/remove", s.RemoveItem)
	r.Delete("/cart/clear", s.ClearCart)
	r.Post("/cart/discount/apply", s.ApplyDiscount)
	r.Delete("/cart/discount", s.RemoveDiscount)
	return r
}

type cartResponse struct {
	Items    []domain.CartItem `json:"items"`
	Discount *domain.Discount  `json:"discount"`
	Version  uint64            `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type addItemRequest struct {
	ProductID      string            `json:"productId"`
	Quantity       int               `json:"quantity"`
	Customizations map[string]string `json:"customizations,omitempty"`
}

type updateQuantityRequest struct {
	ItemKey  string `json:"itemKey"`
	Quantity int    `json:"quantity"`
}

type removeItemRequest struct {
	ItemKey string `json:"itemKey"`
}

type applyDiscountRequest struct {
	Code string `json:"code"`
}

type applyDiscountResponse struct {
	Success  bool             `json:"success"`
	Discount *domain.Discount `json:"discount,omitempty"`
	Message  string           `json:"message,omitempty"`
}

func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	snap, err := s.repo.Get(r.Context(), owner)
	if errors.Is(err, repository.ErrCartNotFound) {
		respondJSON(w, http.StatusOK, cartResponse{Items: []domain.CartItem{}})
		return
	}
	if err != nil {
		s.internalError(w, "get cart", err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse{Items: snap.Items, Discount: snap.Discount, Version: snap.Version})
}

// PutCart upserts a full snapshot. This is the path the storefront's sync
// policy uses; a stale version comes back as 409 and the client discards
// the write.
func (s *Server) PutCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	var snap domain.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	snap.OwnerID = owner

	err := s.repo.Upsert(r.Context(), &snap)
	if errors.Is(err, repository.ErrStaleSnapshot) {
		respondError(w, http.StatusConflict, "stale_snapshot", "a newer cart version is already stored")
		return
	}
	if err != nil {
		s.internalError(w, "upsert cart", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}
	if req.Quantity < 1 || req.Quantity > s.maxQty {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity out of range")
		return
	}

	s.mutate(w, r, owner, func(snap *domain.Snapshot) error {
		key := itemkey.Generate(req.ProductID, req.Customizations)
		now := time.Now()
		for i := range snap.Items {
			if snap.Items[i].ItemKey == key {
				q := snap.Items[i].Quantity + req.Quantity
				if q > s.maxQty {
					q = s.maxQty
				}
				snap.Items[i].Quantity = q
				snap.Items[i].UpdatedAt = now
				return nil
			}
		}
		snap.Items = append(snap.Items, domain.CartItem{
			ItemKey:        key,
			ProductID:      req.ProductID,
			Quantity:       req.Quantity,
			Customizations: req.Customizations,
			AddedAt:        now,
			UpdatedAt:      now,
		})
		return nil
	})
}

func (s *Server) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > s.maxQty {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity out of range")
		return
	}

	s.mutate(w, r, owner, func(snap *domain.Snapshot) error {
		for i := range snap.Items {
			if snap.Items[i].ItemKey == req.ItemKey {
				if req.Quantity <= 0 {
					snap.Items = append(snap.Items[:i], snap.Items[i+1:]...)
				} else {
					snap.Items[i].Quantity = req.Quantity
					snap.Items[i].UpdatedAt = time.Now()
				}
				return nil
			}
		}
		return repository.ErrCartNotFound
	})
}

func (s *Server) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	var req removeItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s.mutate(w, r, owner, func(snap *domain.Snapshot) error {
		for i := range snap.Items {
			if snap.Items[i].ItemKey == req.ItemKey {
				snap.Items = append(snap.Items[:i], snap.Items[i+1:]...)
				return nil
			}
		}
		return nil // removing an absent item is a no-op success
	})
}

func (s *Server) ClearCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	s.mutate(w, r, owner, func(snap *domain.Snapshot) error {
		snap.Items = nil
		snap.Discount = nil
		return nil
	})
}

func (s *Server) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	var req applyDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	promo, found := s.promos[req.Code]
	if !found {
		respondJSON(w, http.StatusOK, applyDiscountResponse{
			Success: false,
			Message: "invalid or expired discount code",
		})
		return
	}

	s.mutateWith(w, r, owner, func(snap *domain.Snapshot) error {
		snap.Discount = &promo
		return nil
	}, func() {
		respondJSON(w, http.StatusOK, applyDiscountResponse{Success: true, Discount: &promo})
	})
}

func (s *Server) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	s.mutate(w, r, owner, func(snap *domain.Snapshot) error {
		snap.Discount = nil
		return nil
	})
}

// mutate loads the owner's snapshot (empty if none), applies fn, bumps the
// version and stores the result, then responds with the updated cart.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, owner string, fn func(*domain.Snapshot) error) {
	s.mutateWith(w, r, owner, fn, nil)
}

func (s *Server) mutateWith(w http.ResponseWriter, r *http.Request, owner string, fn func(*domain.Snapshot) error, respond func()) {
	snap, err := s.repo.Get(r.Context(), owner)
	if errors.Is(err, repository.ErrCartNotFound) {
		snap = domain.Empty(owner)
	} else if err != nil {
		s.internalError(w, "load cart", err)
		return
	}

	if err := fn(snap); err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			respondError(w, http.StatusNotFound, "item_not_found", "no item with that key")
			return
		}
		s.internalError(w, "mutate cart", err)
		return
	}

	snap.Version++
	if err := s.repo.Upsert(r.Context(), snap); err != nil {
		if errors.Is(err, repository.ErrStaleSnapshot) {
			respondError(w, http.StatusConflict, "stale_snapshot", "cart was modified concurrently, retry")
			return
		}
		s.internalError(w, "store cart", err)
		return
	}

	if respond != nil {
		respond()
		return
	}
	respondJSON(w, http.StatusOK, cartResponse{Items: snap.Items, Discount: snap.Discount, Version: snap.Version})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error("cart server failure", zap.String("op", op), zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal", "internal server error")
}

func ownerFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		respondError(w, http.StatusUnauthorized, "missing_owner", "missing "+ownerHeader+" header")
		return "", false
	}
	return owner, true
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, errorResponse{Error: msg, Code: code})
}
