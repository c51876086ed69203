package remote

import (
	"context"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
	"github.com/PabloPachecoB/pizza4u/internal/engine"
)

type ownerValidator struct {
	client  *Client
	ownerID string
}

// ValidatorFor binds the client to one cart owner so it satisfies
// engine.DiscountValidator.
func (c *Client) ValidatorFor(ownerID string) engine.DiscountValidator {
	return &ownerValidator{client: c, ownerID: ownerID}
}

func (v *ownerValidator) Validate(ctx context.Context, code string) (*domain.Discount, error) {
	return v.client.Validate(ctx, v.ownerID, code)
}
