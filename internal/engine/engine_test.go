package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
	"github.com/PabloPachecoB/pizza4u/internal/itemkey"
)

type mockPersister struct {
	mu       sync.Mutex
	snap     *domain.Snapshot
	loadErr  error
	persists int
}

func (m *mockPersister) Load(context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snap == nil {
		return domain.Empty("test-owner"), nil
	}
	return m.snap, nil
}

func (m *mockPersister) Persist(items []domain.CartItem, discount *domain.Discount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persists++
	m.snap = &domain.Snapshot{OwnerID: "test-owner", Items: items, Discount: discount}
}

func (m *mockPersister) persistCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persists
}

func testConfig() domain.CartConfig {
	return domain.CartConfig{TaxRate: 0.10, DeliveryThreshold: 50, DeliveryFee: 5, MaxQuantityPerItem: 20}
}

func testEngine(t *testing.T) (*Engine, *mockPersister) {
	t.Helper()
	p := &mockPersister{}
	promos := StaticValidator{
		"PIZZA20": {Code: "PIZZA20", Kind: domain.DiscountPercentage, Value: 20, Description: "20% off"},
		"SAVE5":   {Code: "SAVE5", Kind: domain.DiscountFixed, Value: 5},
	}
	return New(testConfig(), p, promos, zap.NewNop()), p
}

func pizza() domain.Product {
	return domain.Product{ID: "A", Name: "Pizza A", UnitPrice: 45}
}

func TestAddItem_NewLine(t *testing.T) {
	e, p := testEngine(t)

	qty, summary, err := e.AddItem(context.Background(), pizza(), 1, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, qty)
	assert.Equal(t, 45.0, summary.Subtotal)
	assert.Equal(t, 4.5, summary.Tax)
	assert.Equal(t, 5.0, summary.DeliveryFee)
	assert.Equal(t, 54.5, summary.Total)
	assert.Equal(t, 1, p.persistCount())
}

func TestAddItem_MergesSameKey(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	_, _, err := e.AddItem(ctx, pizza(), 1, nil)
	require.NoError(t, err)
	qty, summary, err := e.AddItem(ctx, pizza(), 2, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, qty)
	assert.Len(t, e.Items(), 1)
	assert.Equal(t, 135.0, summary.Subtotal)
	assert.Equal(t, 13.5, summary.Tax)
	assert.Equal(t, 0.0, summary.DeliveryFee)
	assert.Equal(t, 148.5, summary.Total)
	assert.True(t, summary.QualifiesForFreeDelivery)
}

func TestAddItem_DifferentCustomizationsAreSeparateLines(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	_, _, err := e.AddItem(ctx, pizza(), 1, map[string]string{"size": "large"})
	require.NoError(t, err)
	_, _, err = e.AddItem(ctx, pizza(), 1, map[string]string{"size": "small"})
	require.NoError(t, err)

	assert.Len(t, e.Items(), 2)
}

func TestAddItem_SameCustomizationsDifferentOrderMerge(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	_, _, err := e.AddItem(ctx, pizza(), 1, map[string]string{"size": "large", "crust": "thin"})
	require.NoError(t, err)
	qty, _, err := e.AddItem(ctx, pizza(), 1, map[string]string{"crust": "thin", "size": "large"})
	require.NoError(t, err)

	assert.Equal(t, 2, qty)
	assert.Len(t, e.Items(), 1)
}

func TestAddItem_MergeCappedAtMax(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	_, _, err := e.AddItem(ctx, pizza(), 15, nil)
	require.NoError(t, err)
	qty, _, err := e.AddItem(ctx, pizza(), 15, nil)
	require.NoError(t, err)

	assert.Equal(t, 20, qty) // capped, not an error
}

func TestAddItem_Validation(t *testing.T) {
	e, p := testEngine(t)
	ctx := context.Background()

	_, _, err := e.AddItem(ctx, domain.Product{Name: "no id"}, 1, nil)
	assert.ErrorIs(t, err, ErrMissingProduct)

	_, _, err = e.AddItem(ctx, pizza(), 0, nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, _, err = e.AddItem(ctx, pizza(), 21, nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	assert.Empty(t, e.Items())
	assert.Zero(t, p.persistCount()) // rejected before any mutation
}

func TestUpdateQuantity_Replaces(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	_, _, err := e.AddItem(ctx, pizza(), 1, nil)
	require.NoError(t, err)
	key := e.Items()[0].ItemKey

	summary, err := e.UpdateQuantity(ctx, key, 3)

	require.NoError(t, err)
	assert.Equal(t, 3, e.Items()[0].Quantity)
	assert.Equal(t, 135.0, summary.Subtotal)
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	_, _, err := e.AddItem(ctx, pizza(), 1, nil)
	require.NoError(t, err)
	key := e.Items()[0].ItemKey

	summary, err := e.UpdateQuantity(ctx, key, 0)

	require.NoError(t, err)
	assert.Empty(t, e.Items())
	assert.Equal(t, 0.0, summary.Subtotal)
	assert.Equal(t, 0.0, summary.Total)
	assert.Equal(t, 0, summary.ItemCount)
}

func TestUpdateQuantity_AboveMaxFails(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	_, _, err := e.AddItem(ctx, pizza(), 1, nil)
	require.NoError(t, err)
	key := e.Items()[0].ItemKey

	_, err = e.UpdateQuantity(ctx, key, 21)

	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 1, e.Items()[0].Quantity)
}

func TestUpdateQuantity_UnknownKey(t *testing.T) {
	e, _ := testEngine(t)

	_, err := e.UpdateQuantity(context.Background(), "missing", 2)

	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem_Idempotent(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	_, _, err := e.AddItem(ctx, pizza(), 2, nil)
	require.NoError(t, err)
	key := e.Items()[0].ItemKey

	_, err = e.RemoveItem(ctx, key)
	require.NoError(t, err)
	summary, err := e.RemoveItem(ctx, key)
	require.NoError(t, err)

	assert.Empty(t, e.Items())
	assert.Equal(t, 0.0, summary.Total)
}

func TestClearCart_DropsItemsAndDiscount(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	_, _, err := e.AddItem(ctx, pizza(), 3, nil)
	require.NoError(t, err)
	_, err = e.ApplyDiscount(ctx, "PIZZA20")
	require.NoError(t, err)

	summary := e.ClearCart(ctx)

	assert.Empty(t, e.Items())
	assert.Nil(t, e.Discount())
	assert.Equal(t, 0.0, summary.Total)
}

func TestApplyDiscount_Success(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	_, _, err := e.AddItem(ctx, pizza(), 3, nil)
	require.NoError(t, err)

	summary, err := e.ApplyDiscount(ctx, "PIZZA20")

	require.NoError(t, err)
	assert.Equal(t, 27.0, summary.DiscountAmount)
	assert.Equal(t, 121.5, summary.Total) // 135 + 13.5 + 0 - 27
}

func TestApplyDiscount_RejectionLeavesStateUntouched(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	_, _, err := e.AddItem(ctx, pizza(), 3, nil)
	require.NoError(t, err)
	_, err = e.ApplyDiscount(ctx, "PIZZA20")
	require.NoError(t, err)

	_, err = e.ApplyDiscount(ctx, "BOGUS")

	var derr *DiscountError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "BOGUS", derr.Code)
	require.NotNil(t, e.Discount())
	assert.Equal(t, "PIZZA20", e.Discount().Code) // previous discount kept
}

func TestApplyDiscount_ValidatorInfrastructureFailure(t *testing.T) {
	p := &mockPersister{}
	e := New(testConfig(), p, failingValidator{}, zap.NewNop())

	_, err := e.ApplyDiscount(context.Background(), "PIZZA20")

	var derr *DiscountError
	require.ErrorAs(t, err, &derr)
	assert.Nil(t, e.Discount())
}

type failingValidator struct{}

func (failingValidator) Validate(context.Context, string) (*domain.Discount, error) {
	return nil, errors.New("validator down")
}

func TestRemoveDiscount(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	_, _, err := e.AddItem(ctx, pizza(), 1, nil)
	require.NoError(t, err)
	_, err = e.ApplyDiscount(ctx, "SAVE5")
	require.NoError(t, err)

	summary := e.RemoveDiscount(ctx)
	assert.Equal(t, 0.0, summary.DiscountAmount)
	assert.Nil(t, e.Discount())

	// No-op when nothing is applied.
	summary = e.RemoveDiscount(ctx)
	assert.Equal(t, 0.0, summary.DiscountAmount)
}

func TestLoadCart_Hydrates(t *testing.T) {
	p := &mockPersister{snap: &domain.Snapshot{
		OwnerID: "test-owner",
		Items: []domain.CartItem{
			{ItemKey: itemkey.Generate("A", nil), ProductID: "A", UnitPrice: 45, Quantity: 2},
		},
		Discount: &domain.Discount{Code: "SAVE5", Kind: domain.DiscountFixed, Value: 5},
		Version:  12,
	}}
	e := New(testConfig(), p, StaticValidator{}, zap.NewNop())

	summary, err := e.LoadCart(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 90.0, summary.Subtotal)
	assert.Equal(t, 5.0, summary.DiscountAmount)
	require.NotNil(t, e.Discount())
	assert.Equal(t, "SAVE5", e.Discount().Code)
}

func TestScenario_FullFlow(t *testing.T) {
	// The end-to-end walk: add, merge, discount, then shrink back to empty.
	e, _ := testEngine(t)
	ctx := context.Background()

	_, s, err := e.AddItem(ctx, pizza(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 54.5, s.Total)

	qty, s, err := e.AddItem(ctx, pizza(), 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, qty)
	assert.Equal(t, 148.5, s.Total)

	s, err = e.ApplyDiscount(ctx, "PIZZA20")
	require.NoError(t, err)
	assert.Equal(t, 121.5, s.Total)

	key := e.Items()[0].ItemKey
	s, err = e.UpdateQuantity(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Subtotal)
	assert.Equal(t, 0.0, s.Tax)
	assert.Equal(t, 0.0, s.DeliveryFee)
	assert.Equal(t, 0.0, s.Total)
}
