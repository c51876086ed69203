package domain

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

// Discount is the single promo code active on a cart, if any.
type Discount struct {
	Code        string       `json:"code" bson:"code"`
	Kind        DiscountKind `json:"kind" bson:"kind"`
	Value       float64      `json:"value" bson:"value"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
}
