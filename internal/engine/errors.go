package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingProduct rejects an AddItem call with no product identity.
	ErrMissingProduct = errors.New("product id is required")

	// ErrInvalidQuantity rejects quantities outside [1, MaxQuantityPerItem].
	ErrInvalidQuantity = errors.New("quantity out of range")

	// ErrItemNotFound means the referenced item key is not in the cart.
	// RemoveItem treats this as success; other operations surface it.
	ErrItemNotFound = errors.New("item not found in cart")
)

// DiscountError is a rejected discount code. Cart state is left untouched;
// the message is safe to show to the caller.
type DiscountError struct {
	Code    string
	Message string
}

func (e *DiscountError) Error() string {
	return fmt.Sprintf("discount %q rejected: %s", e.Code, e.Message)
}
