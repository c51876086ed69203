// Package localredis is the always-available local snapshot store. It keeps
// two named entries per owner (item list and active discount, the latter
// absent when no discount is applied) plus the snapshot version.
package localredis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
	"github.com/PabloPachecoB/pizza4u/internal/store"
)

// Carts linger long enough to survive reloads and network outages; the
// jitter keeps a fleet of entries from expiring at once.
const baseTTL = 90 * 24 * time.Hour

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client) *Store {
	return &Store{client: client, ttl: baseTTL}
}

func (s *Store) Load(ctx context.Context, ownerID string) (*domain.Snapshot, error) {
	data, err := s.client.Get(ctx, itemsKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get items failed: %w", err)
	}

	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal items failed: %w", err)
	}

	snap := &domain.Snapshot{OwnerID: ownerID, Items: items}

	if data, err := s.client.Get(ctx, discountKey(ownerID)).Bytes(); err == nil {
		var d domain.Discount
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("unmarshal discount failed: %w", err)
		}
		snap.Discount = &d
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get discount failed: %w", err)
	}

	if raw, err := s.client.Get(ctx, versionKey(ownerID)).Result(); err == nil {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			snap.Version = v
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get version failed: %w", err)
	}

	return snap, nil
}

// saveScript writes the three entries only when the incoming version is not
// below the stored one. Delayed writes from earlier mutations arrive after
// newer ones, so the compare and the writes must be a single atomic step.
var saveScript = redis.NewScript(`
local current = redis.call('GET', KEYS[3])
if current and tonumber(current) > tonumber(ARGV[3]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[4])
if ARGV[2] == '' then
	redis.call('DEL', KEYS[2])
else
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[4])
end
redis.call('SET', KEYS[3], ARGV[3], 'PX', ARGV[4])
return 1
`)

// Save stores the snapshot unless a newer version is already present, in
// which case it returns store.ErrStaleSnapshot and leaves the entries alone.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	items, err := json.Marshal(snap.Items)
	if err != nil {
		return fmt.Errorf("marshal items failed: %w", err)
	}

	var discount []byte
	if snap.Discount != nil {
		discount, err = json.Marshal(snap.Discount)
		if err != nil {
			return fmt.Errorf("marshal discount failed: %w", err)
		}
	}

	ttl := s.ttl + time.Duration(rand.Intn(120))*time.Minute
	keys := []string{itemsKey(snap.OwnerID), discountKey(snap.OwnerID), versionKey(snap.OwnerID)}
	stored, err := saveScript.Run(ctx, s.client, keys,
		items, string(discount), snap.Version, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	if stored == 0 {
		return store.ErrStaleSnapshot
	}
	return nil
}

func itemsKey(ownerID string) string    { return fmt.Sprintf("cart:%s:items", ownerID) }
func discountKey(ownerID string) string { return fmt.Sprintf("cart:%s:discount", ownerID) }
func versionKey(ownerID string) string  { return fmt.Sprintf("cart:%s:version", ownerID) }
