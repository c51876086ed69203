package domain

// CartSummary holds the derived monetary totals for the current cart state.
// It is recomputed on every read and never persisted.
type CartSummary struct {
	Subtotal                 float64 `json:"subtotal"`
	Tax                      float64 `json:"tax"`
	DeliveryFee              float64 `json:"delivery_fee"`
	DiscountAmount           float64 `json:"discount_amount"`
	Total                    float64 `json:"total"`
	ItemCount                int     `json:"item_count"`
	QualifiesForFreeDelivery bool    `json:"qualifies_for_free_delivery"`
}
