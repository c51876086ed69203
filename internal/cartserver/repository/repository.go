package repository

import (
	"context"
	"errors"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
)

// SnapshotRepository stores one cart snapshot per owner. Upsert rejects
// snapshots whose version is at or below the stored one, which is what
// keeps overlapping client writes from landing out of order.
type SnapshotRepository interface {
	Get(ctx context.Context, ownerID string) (*domain.Snapshot, error)
	Upsert(ctx context.Context, snap *domain.Snapshot) error
	Delete(ctx context.Context, ownerID string) error
}

var (
	ErrCartNotFound  = errors.New("cart not found")
	ErrStaleSnapshot = errors.New("snapshot version is stale")
)
