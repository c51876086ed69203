package engine

import (
	"context"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
)

// DiscountValidator is the external collaborator that decides whether a
// user-entered code is good. A rejection comes back as *DiscountError.
type DiscountValidator interface {
	Validate(ctx context.Context, code string) (*domain.Discount, error)
}

// StaticValidator validates against a fixed promo table. It backs guest
// sessions and tests; authenticated sessions use the cart service.
type StaticValidator map[string]domain.Discount

func (v StaticValidator) Validate(_ context.Context, code string) (*domain.Discount, error) {
	d, ok := v[code]
	if !ok {
		return nil, &DiscountError{Code: code, Message: "invalid or expired discount code"}
	}
	return &d, nil
}
