// Package engine owns the authoritative in-memory cart state and exposes
// every mutation the storefront performs on it. Mutations are synchronous
// atomic steps; durability is delegated to a Persister whose writes are
// fire-and-forget and never roll back a mutation that already succeeded.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
	"github.com/PabloPachecoB/pizza4u/internal/itemkey"
	"github.com/PabloPachecoB/pizza4u/internal/pricing"
)

// Persister hydrates and persists cart snapshots. Persist must not block:
// the engine calls it while holding its mutation lock so that snapshot
// versions are assigned in mutation order.
type Persister interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
	Persist(items []domain.CartItem, discount *domain.Discount)
}

type Engine struct {
	cfg       domain.CartConfig
	persister Persister
	validator DiscountValidator
	log       *zap.Logger

	mu       sync.Mutex
	items    []domain.CartItem
	discount *domain.Discount
}

func New(cfg domain.CartConfig, persister Persister, validator DiscountValidator, log *zap.Logger) *Engine {
	if cfg.MaxQuantityPerItem <= 0 {
		cfg.MaxQuantityPerItem = domain.DefaultConfig().MaxQuantityPerItem
	}
	return &Engine{
		cfg:       cfg,
		persister: persister,
		validator: validator,
		log:       log,
	}
}

// LoadCart hydrates the item list and discount from the backing stores.
// Call it once at session start, and again whenever authentication state
// changes, before issuing mutations.
func (e *Engine) LoadCart(ctx context.Context) (domain.CartSummary, error) {
	snap, err := e.persister.Load(ctx)
	if err != nil {
		return domain.CartSummary{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = snap.Items
	e.discount = snap.Discount
	return e.summaryLocked(), nil
}

// AddItem validates the product and quantity, then merges into an existing
// line with the same item key or appends a new one. Merged quantities are
// silently capped at MaxQuantityPerItem. Returns the resulting quantity for
// the line.
func (e *Engine) AddItem(ctx context.Context, product domain.Product, quantity int, customizations map[string]string) (int, domain.CartSummary, error) {
	if product.ID == "" {
		return 0, e.Summary(), ErrMissingProduct
	}
	if quantity < 1 || quantity > e.cfg.MaxQuantityPerItem {
		return 0, e.Summary(), ErrInvalidQuantity
	}

	key := itemkey.Generate(product.ID, customizations)
	now := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	resulting := 0
	if i := e.indexOfLocked(key); i >= 0 {
		resulting = e.items[i].Quantity + quantity
		if resulting > e.cfg.MaxQuantityPerItem {
			resulting = e.cfg.MaxQuantityPerItem
		}
		e.items[i].Quantity = resulting
		e.items[i].UpdatedAt = now
	} else {
		resulting = quantity
		e.items = append(e.items, domain.CartItem{
			ItemKey:        key,
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPrice:      product.UnitPrice,
			ImageRef:       product.ImageRef,
			Category:       product.Category,
			Description:    product.Description,
			Quantity:       quantity,
			Customizations: customizations,
			AddedAt:        now,
			UpdatedAt:      now,
		})
	}

	e.persistLocked()
	return resulting, e.summaryLocked(), nil
}

// UpdateQuantity replaces the quantity of the matching line. A quantity of
// zero or less removes the line, same as RemoveItem.
func (e *Engine) UpdateQuantity(ctx context.Context, key string, quantity int) (domain.CartSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if quantity <= 0 {
		e.removeLocked(key)
		e.persistLocked()
		return e.summaryLocked(), nil
	}
	if quantity > e.cfg.MaxQuantityPerItem {
		return e.summaryLocked(), ErrInvalidQuantity
	}

	i := e.indexOfLocked(key)
	if i < 0 {
		return e.summaryLocked(), ErrItemNotFound
	}
	e.items[i].Quantity = quantity
	e.items[i].UpdatedAt = time.Now()

	e.persistLocked()
	return e.summaryLocked(), nil
}

// RemoveItem is idempotent: removing a key that is not in the cart succeeds.
func (e *Engine) RemoveItem(ctx context.Context, key string) (domain.CartSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.removeLocked(key)
	e.persistLocked()
	return e.summaryLocked(), nil
}

// ClearCart empties the item list and drops any active discount. External
// checkout calls this after its own success.
func (e *Engine) ClearCart(ctx context.Context) domain.CartSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.items = nil
	e.discount = nil
	e.persistLocked()
	return e.summaryLocked()
}

// ApplyDiscount asks the validator collaborator about the code. On rejection
// the existing cart state, including any previously applied discount, is
// left untouched and the *DiscountError is returned to the caller.
func (e *Engine) ApplyDiscount(ctx context.Context, code string) (domain.CartSummary, error) {
	d, err := e.validator.Validate(ctx, code)
	if err != nil {
		var derr *DiscountError
		if !errors.As(err, &derr) {
			// Validator infrastructure failure, not a rejected code.
			e.log.Warn("discount validation failed", zap.String("code", code), zap.Error(err))
			err = &DiscountError{Code: code, Message: "discount validation unavailable"}
		}
		return e.Summary(), err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.discount = d
	e.persistLocked()
	return e.summaryLocked(), nil
}

// RemoveDiscount clears the active discount; a no-op when none is set.
func (e *Engine) RemoveDiscount(ctx context.Context) domain.CartSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.discount == nil {
		return e.summaryLocked()
	}
	e.discount = nil
	e.persistLocked()
	return e.summaryLocked()
}

// Summary recomputes the totals for the current state.
func (e *Engine) Summary() domain.CartSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summaryLocked()
}

// Items returns a copy of the current line items.
func (e *Engine) Items() []domain.CartItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.CloneItems(e.items)
}

// Discount returns the active discount, or nil.
func (e *Engine) Discount() *domain.Discount {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.discount == nil {
		return nil
	}
	d := *e.discount
	return &d
}

func (e *Engine) summaryLocked() domain.CartSummary {
	return pricing.ComputeSummary(e.items, e.discount, e.cfg)
}

func (e *Engine) indexOfLocked(key string) int {
	for i := range e.items {
		if e.items[i].ItemKey == key {
			return i
		}
	}
	return -1
}

func (e *Engine) removeLocked(key string) {
	if i := e.indexOfLocked(key); i >= 0 {
		e.items = append(e.items[:i], e.items[i+1:]...)
	}
}

// persistLocked hands the new state to the persister. Called with the
// mutation lock held so writes are versioned in mutation order; the
// persister does the actual I/O asynchronously.
func (e *Engine) persistLocked() {
	e.persister.Persist(domain.CloneItems(e.items), e.discount)
}
