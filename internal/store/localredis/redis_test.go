package localredis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
	"github.com/PabloPachecoB/pizza4u/internal/store"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func testSnapshot(owner string) *domain.Snapshot {
	return &domain.Snapshot{
		OwnerID: owner,
		Items: []domain.CartItem{
			{ItemKey: "k1", ProductID: "margherita", Name: "Margherita", UnitPrice: 12.5, Quantity: 2,
				Customizations: map[string]string{"size": "large"}},
			{ItemKey: "k2", ProductID: "pepperoni", Name: "Pepperoni", UnitPrice: 14, Quantity: 1},
		},
		Discount:  &domain.Discount{Code: "PIZZA20", Kind: domain.DiscountPercentage, Value: 20},
		Version:   7,
		UpdatedAt: time.Now(),
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	snap := testSnapshot("guest-1")

	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx, "guest-1")
	require.NoError(t, err)
	assert.Equal(t, snap.Items, got.Items)
	assert.Equal(t, snap.Discount, got.Discount)
	assert.Equal(t, uint64(7), got.Version)
}

func TestLoad_NotFound(t *testing.T) {
	s, _ := setupTestStore(t)

	_, err := s.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
}

func TestSave_RemovesDiscountEntry(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()
	snap := testSnapshot("guest-2")

	require.NoError(t, s.Save(ctx, snap))
	require.True(t, mr.Exists("cart:guest-2:discount"))

	snap.Discount = nil
	snap.Version++
	require.NoError(t, s.Save(ctx, snap))
	assert.False(t, mr.Exists("cart:guest-2:discount"))

	got, err := s.Load(ctx, "guest-2")
	require.NoError(t, err)
	assert.Nil(t, got.Discount)
	assert.Equal(t, uint64(8), got.Version)
}

func TestSave_EmptyCart(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &domain.Snapshot{OwnerID: "guest-3", Version: 1}))

	got, err := s.Load(ctx, "guest-3")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Nil(t, got.Discount)
}

func TestSave_StaleVersionRejected(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	snap := testSnapshot("guest-5")
	snap.Version = 10
	require.NoError(t, s.Save(ctx, snap))

	// A delayed write from an earlier mutation must not wipe the newer
	// snapshot, even when it carries an empty cart.
	stale := &domain.Snapshot{OwnerID: "guest-5", Version: 7}
	assert.ErrorIs(t, s.Save(ctx, stale), store.ErrStaleSnapshot)

	got, err := s.Load(ctx, "guest-5")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Version)
	assert.Len(t, got.Items, 2)
	assert.NotNil(t, got.Discount)
}

func TestSave_SameVersionRewriteAllowed(t *testing.T) {
	// Mirroring a remote snapshot can rewrite the version already stored
	// locally; only strictly lower versions are rejected.
	s, _ := setupTestStore(t)
	ctx := context.Background()
	snap := testSnapshot("guest-6")

	require.NoError(t, s.Save(ctx, snap))
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx, "guest-6")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Version)
}

func TestLoad_AfterRedisDown(t *testing.T) {
	s, mr := setupTestStore(t)
	mr.Close()

	_, err := s.Load(context.Background(), "guest-4")
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrSnapshotNotFound)
}
