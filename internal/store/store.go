// Package store defines the durable snapshot store consumed by the sync
// policy. Consumers define this interface, not the individual backends.
package store

import (
	"context"
	"errors"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
)

// Store reads and writes the full cart snapshot for one owner.
type Store interface {
	Load(ctx context.Context, ownerID string) (*domain.Snapshot, error)
	Save(ctx context.Context, snap *domain.Snapshot) error
}

var (
	// ErrSnapshotNotFound means the owner has no persisted cart yet.
	ErrSnapshotNotFound = errors.New("cart snapshot not found")

	// ErrStaleSnapshot means the write carried a version below the one the
	// store already holds and was discarded.
	ErrStaleSnapshot = errors.New("stale cart snapshot discarded")
)
