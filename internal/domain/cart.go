package domain

import "time"

// CartItem is a single line in the cart. Product display and pricing data is
// snapshotted at add-time; it is not re-read from the catalog afterwards.
type CartItem struct {
	ItemKey        string            `json:"item_key" bson:"item_key"`
	ProductID      string            `json:"product_id" bson:"product_id"`
	Name           string            `json:"name" bson:"name"`
	UnitPrice      float64           `json:"unit_price" bson:"unit_price"`
	ImageRef       string            `json:"image_ref,omitempty" bson:"image_ref,omitempty"`
	Category       string            `json:"category,omitempty" bson:"category,omitempty"`
	Description    string            `json:"description,omitempty" bson:"description,omitempty"`
	Quantity       int               `json:"quantity" bson:"quantity"`
	Customizations map[string]string `json:"customizations,omitempty" bson:"customizations,omitempty"`
	AddedAt        time.Time         `json:"added_at" bson:"added_at"`
	UpdatedAt      time.Time         `json:"updated_at" bson:"updated_at"`
}

// CloneItems returns a deep-enough copy of the item list so the caller can
// hold it across later cart mutations.
func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return nil
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].Customizations == nil {
			continue
		}
		c := make(map[string]string, len(out[i].Customizations))
		for k, v := range out[i].Customizations {
			c[k] = v
		}
		out[i].Customizations = c
	}
	return out
}
