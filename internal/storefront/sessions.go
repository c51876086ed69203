package storefront

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/PabloPachecoB/pizza4u/internal/engine"
)

// EngineFactory builds a cart engine bound to one owner. The storefront
// calls it lazily, once per live session.
type EngineFactory func(ownerID string, authenticated bool) *engine.Engine

// Sessions owns the live per-owner cart engines. Each engine is hydrated
// via LoadCart before any mutation is allowed through, so callers never
// race session-start hydration.
type Sessions struct {
	factory EngineFactory
	log     *zap.Logger

	mu      sync.Mutex
	engines map[string]*engine.Engine
}

func NewSessions(factory EngineFactory, log *zap.Logger) *Sessions {
	return &Sessions{
		factory: factory,
		log:     log,
		engines: make(map[string]*engine.Engine),
	}
}

// Engine returns the hydrated cart engine for the owner, creating it on
// first use.
func (s *Sessions) Engine(ctx context.Context, ownerID string, authenticated bool) (*engine.Engine, error) {
	s.mu.Lock()
	e, ok := s.engines[ownerID]
	s.mu.Unlock()
	if ok {
		return e, nil
	}

	e = s.factory(ownerID, authenticated)
	if _, err := e.LoadCart(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have hydrated the same owner concurrently.
	if existing, ok := s.engines[ownerID]; ok {
		return existing, nil
	}
	s.engines[ownerID] = e
	return e, nil
}

// ClearCart implements the checkout collaborator contract: after a
// successful checkout the owner's cart is emptied.
func (s *Sessions) ClearCart(ctx context.Context, ownerID string, authenticated bool) error {
	e, err := s.Engine(ctx, ownerID, authenticated)
	if err != nil {
		return err
	}
	e.ClearCart(ctx)
	s.log.Info("cart cleared after checkout", zap.String("owner", ownerID))
	return nil
}

// Drop forgets the live engine for an owner, forcing a re-hydration on the
// next request. Called when authentication state transitions.
func (s *Sessions) Drop(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engines, ownerID)
}
