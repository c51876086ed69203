package repository

import (
	"context"
	"sync"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
)

// memoryRepository backs handler tests and local development without mongo.
type memoryRepository struct {
	mu    sync.RWMutex
	snaps map[string]domain.Snapshot
}

func NewMemoryRepository() SnapshotRepository {
	return &memoryRepository{snaps: make(map[string]domain.Snapshot)}
}

func (m *memoryRepository) Get(_ context.Context, ownerID string) (*domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[ownerID]
	if !ok {
		return nil, ErrCartNotFound
	}
	snap.Items = domain.CloneItems(snap.Items)
	return &snap, nil
}

func (m *memoryRepository) Upsert(_ context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.snaps[snap.OwnerID]; ok && snap.Version <= existing.Version {
		return ErrStaleSnapshot
	}
	stored := *snap
	stored.Items = domain.CloneItems(snap.Items)
	m.snaps[snap.OwnerID] = stored
	return nil
}

func (m *memoryRepository) Delete(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snaps[ownerID]; !ok {
		return ErrCartNotFound
	}
	delete(m.snaps, ownerID)
	return nil
}
