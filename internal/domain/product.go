package domain

// Product carries the catalog data the cart snapshots when an item is added.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	UnitPrice   float64 `json:"unit_price"`
	ImageRef    string  `json:"image_ref,omitempty"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
}
