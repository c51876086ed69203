// Package syncpolicy decides, per operation, which stores to touch and how
// to recover when the remote one fails. The local store is always the
// durability backstop: guests never touch the remote store, authenticated
// owners write to both, and a remote failure degrades to local silently.
package syncpolicy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
	"github.com/PabloPachecoB/pizza4u/internal/store"
)

// AuthFunc reports the snapshot owner and whether the caller is
// authenticated. Injected explicitly instead of read from ambient state so
// fallback behavior is testable.
type AuthFunc func() (ownerID string, authenticated bool)

const defaultTimeout = 3 * time.Second

type Policy struct {
	remote  store.Store
	local   store.Store
	auth    AuthFunc
	log     *zap.Logger
	timeout time.Duration

	breaker *gobreaker.CircuitBreaker[*domain.Snapshot]
	sfg     singleflight.Group

	mu      sync.Mutex
	version uint64

	writes sync.WaitGroup
}

type Option func(*Policy)

// WithTimeout bounds each remote call. The default is 3s.
func WithTimeout(d time.Duration) Option {
	return func(p *Policy) { p.timeout = d }
}

func New(remote, local store.Store, auth AuthFunc, log *zap.Logger, opts ...Option) *Policy {
	p := &Policy{
		remote:  remote,
		local:   local,
		auth:    auth,
		log:     log,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.breaker = gobreaker.NewCircuitBreaker[*domain.Snapshot](gobreaker.Settings{
		Name:    "remote-cart",
		Timeout: 30 * time.Second,
	})
	return p
}

// Load hydrates the cart. Authenticated owners read the remote store first
// and fall back to local on any failure; guests read local directly. Store
// failures are logged, never surfaced: the caller always gets a usable
// snapshot, empty in the worst case.
func (p *Policy) Load(ctx context.Context) (*domain.Snapshot, error) {
	owner, authenticated := p.auth()

	v, err, _ := p.sfg.Do(owner, func() (interface{}, error) {
		if authenticated {
			if snap, err := p.loadRemote(ctx, owner); err == nil {
				// The local backstop can be ahead of the remote, e.g. after
				// mutations persisted during a remote outage. Keep whichever
				// snapshot carries the higher version.
				if local, lerr := p.local.Load(ctx, owner); lerr == nil && local.Version > snap.Version {
					snap = local
				} else {
					p.mirrorToLocal(snap)
				}
				p.adoptVersion(snap.Version)
				return snap, nil
			} else if !errors.Is(err, store.ErrSnapshotNotFound) {
				p.log.Warn("remote cart load failed, falling back to local",
					zap.String("owner", owner), zap.Error(err))
			}
		}

		snap, err := p.local.Load(ctx, owner)
		if err != nil {
			if !errors.Is(err, store.ErrSnapshotNotFound) {
				p.log.Warn("local cart load failed, starting empty",
					zap.String("owner", owner), zap.Error(err))
			}
			return domain.Empty(owner), nil
		}
		p.adoptVersion(snap.Version)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Snapshot), nil
}

// Persist snapshots the given state under the next version and writes it
// out asynchronously. A write that has been superseded by a later version
// before it runs is skipped entirely; remote and local failures are logged
// and never reported back, because the in-memory mutation already succeeded.
func (p *Policy) Persist(items []domain.CartItem, discount *domain.Discount) {
	owner, authenticated := p.auth()

	p.mu.Lock()
	p.version++
	snap := &domain.Snapshot{
		OwnerID:   owner,
		Items:     items,
		Discount:  discount,
		Version:   p.version,
		UpdatedAt: time.Now(),
	}
	p.mu.Unlock()

	p.writes.Add(1)
	go func() {
		defer p.writes.Done()

		if p.superseded(snap.Version) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if authenticated {
			if err := p.saveRemote(ctx, snap); err != nil && !errors.Is(err, store.ErrStaleSnapshot) {
				p.log.Warn("remote cart persist failed, local copy is authoritative",
					zap.String("owner", owner), zap.Uint64("version", snap.Version), zap.Error(err))
			}
		}

		if err := p.local.Save(ctx, snap); err != nil && !errors.Is(err, store.ErrStaleSnapshot) {
			p.log.Warn("local cart persist failed",
				zap.String("owner", owner), zap.Uint64("version", snap.Version), zap.Error(err))
		}
	}()
}

// Flush blocks until all in-flight persistence writes finish. Used at
// shutdown and in tests.
func (p *Policy) Flush() {
	p.writes.Wait()
}

func (p *Policy) loadRemote(ctx context.Context, owner string) (*domain.Snapshot, error) {
	return p.breaker.Execute(func() (*domain.Snapshot, error) {
		rctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.remote.Load(rctx, owner)
	})
}

func (p *Policy) saveRemote(ctx context.Context, snap *domain.Snapshot) error {
	_, err := p.breaker.Execute(func() (*domain.Snapshot, error) {
		return nil, p.remote.Save(ctx, snap)
	})
	return err
}

// mirrorToLocal copies a remote snapshot into the local store so a later
// network blip still finds a current cart.
func (p *Policy) mirrorToLocal(snap *domain.Snapshot) {
	p.writes.Add(1)
	go func() {
		defer p.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.local.Save(ctx, snap); err != nil && !errors.Is(err, store.ErrStaleSnapshot) {
			p.log.Warn("mirroring remote cart to local store failed",
				zap.String("owner", snap.OwnerID), zap.Error(err))
		}
	}()
}

// adoptVersion raises the version floor to what was loaded, so the next
// mutation persists above every snapshot already in either store.
func (p *Policy) adoptVersion(v uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v > p.version {
		p.version = v
	}
}

func (p *Policy) superseded(v uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return v < p.version
}
