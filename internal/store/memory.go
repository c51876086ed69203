package store

import (
	"context"
	"sync"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
)

// Memory is an in-memory Store used as a test double and as a last-resort
// backend when no durable store is configured.
type Memory struct {
	mu    sync.RWMutex
	snaps map[string]domain.Snapshot

	loadErr error
	saveErr error
}

func NewMemory() *Memory {
	return &Memory{snaps: make(map[string]domain.Snapshot)}
}

func (m *Memory) Load(_ context.Context, ownerID string) (*domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	snap, ok := m.snaps[ownerID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	snap.Items = domain.CloneItems(snap.Items)
	return &snap, nil
}

func (m *Memory) Save(_ context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if existing, ok := m.snaps[snap.OwnerID]; ok && snap.Version < existing.Version {
		return ErrStaleSnapshot
	}
	stored := *snap
	stored.Items = domain.CloneItems(snap.Items)
	m.snaps[snap.OwnerID] = stored
	return nil
}

// FailLoads makes every subsequent Load return err. Pass nil to recover.
func (m *Memory) FailLoads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// FailSaves makes every subsequent Save return err. Pass nil to recover.
func (m *Memory) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}
