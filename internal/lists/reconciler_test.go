package lists

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesgaldino/silvershop-api/internal/catalog"
	"github.com/thalesgaldino/silvershop-api/internal/domain"
	"github.com/thalesgaldino/silvershop-api/internal/session"
)

func newReconciler(t *testing.T) (*Reconciler, *catalog.Memory, session.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := session.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	cat := catalog.NewMemory()
	cat.AddProduct(domain.Product{ID: 1, Title: "Widget", Price: decimal.NewFromInt(10), Available: true})
	cat.AddProduct(domain.Product{ID: 2, Title: "Gadget", Price: decimal.NewFromInt(4), Available: true})
	cat.AddVariation(domain.Variation{ID: 11, ProductID: 1, Title: "Widget (Red)", Price: decimal.NewFromInt(12)})

	return NewReconciler(cat, store), cat, store
}

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"wishList", "compareList", "enquiryList"} {
		kind, err := ParseKind(valid)
		require.NoError(t, err)
		assert.Equal(t, Kind(valid), kind)
	}
	_, err := ParseKind("shoppingList")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestReconcilePrunesDeadEntriesDestructively(t *testing.T) {
	r, _, store := newReconciler(t)
	ctx := context.Background()

	require.NoError(t, store.SetIDs(ctx, "s1", "wishList", []int64{1, 99, 2}))

	res, err := r.Reconcile(ctx, "s1", KindWish)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, res.IDs)
	assert.Equal(t, 2, res.Count)

	// The read rewrote the session array without the dead id.
	stored, err := store.GetIDs(ctx, "s1", "wishList")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, stored)
}

func TestReconcilePrunesProductsGoneUnavailable(t *testing.T) {
	r, cat, store := newReconciler(t)
	ctx := context.Background()

	require.NoError(t, store.SetIDs(ctx, "s1", "compareList", []int64{1, 2}))
	cat.RemoveProduct(2)

	res, err := r.Reconcile(ctx, "s1", KindCompare)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.IDs)
}

func TestReconcileMergesPlainThenVariations(t *testing.T) {
	r, _, store := newReconciler(t)
	ctx := context.Background()

	require.NoError(t, store.SetIDs(ctx, "s1", "wishList", []int64{2, 1}))
	require.NoError(t, store.SetIDs(ctx, "s1", "wishList_variations", []int64{11}))

	res, err := r.Reconcile(ctx, "s1", KindWish)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 11}, res.IDs)
	assert.Equal(t, 3, res.Count)
}

func TestReconcileEmptyList(t *testing.T) {
	r, _, _ := newReconciler(t)
	res, err := r.Reconcile(context.Background(), "s1", KindEnquiry)
	require.NoError(t, err)
	assert.Empty(t, res.IDs)
	assert.Zero(t, res.Count)
}

func TestToggleAddValidatesAgainstCatalog(t *testing.T) {
	r, _, store := newReconciler(t)
	ctx := context.Background()

	added, err := r.Toggle(ctx, "s1", KindWish, 1, false)
	require.NoError(t, err)
	assert.True(t, added)

	_, err = r.Toggle(ctx, "s1", KindWish, 99, false)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	// Toggling again removes without consulting the catalog.
	added, err = r.Toggle(ctx, "s1", KindWish, 1, false)
	require.NoError(t, err)
	assert.False(t, added)

	stored, err := store.GetIDs(ctx, "s1", "wishList")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestToggleVariationUsesSeparateKey(t *testing.T) {
	r, _, store := newReconciler(t)
	ctx := context.Background()

	added, err := r.Toggle(ctx, "s1", KindWish, 11, true)
	require.NoError(t, err)
	assert.True(t, added)

	variants, err := store.GetIDs(ctx, "s1", "wishList_variations")
	require.NoError(t, err)
	assert.Equal(t, []int64{11}, variants)

	plain, err := store.GetIDs(ctx, "s1", "wishList")
	require.NoError(t, err)
	assert.Empty(t, plain)
}
