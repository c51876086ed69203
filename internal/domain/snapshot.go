package domain

import "time"

// Snapshot is the full durable cart state for one owner. Version increases
// monotonically with every persisted mutation; stores discard writes whose
// version is below the one they already hold.
type Snapshot struct {
	OwnerID   string     `json:"owner_id" bson:"owner_id"`
	Items     []CartItem `json:"items" bson:"items"`
	Discount  *Discount  `json:"discount,omitempty" bson:"discount,omitempty"`
	Version   uint64     `json:"version" bson:"version"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// Empty returns a fresh snapshot for an owner with no items and version 0.
func Empty(ownerID string) *Snapshot {
	return &Snapshot{OwnerID: ownerID, UpdatedAt: time.Now()}
}
