package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesgaldino/silvershop-api/internal/cart"
	"github.com/thalesgaldino/silvershop-api/internal/domain"
)

func product(id int64, price int64) *domain.Product {
	return &domain.Product{ID: id, Title: "p", Price: decimal.NewFromInt(price), Available: true}
}

func TestCurrentReturnsNilWithoutOrder(t *testing.T) {
	m := NewMemory()
	o, err := m.Current(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestAddLineMergesOnIdentity(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, "s1")
	require.NoError(t, err)

	_, err = m.AddLine(ctx, "s1", product(1, 10), 2)
	require.NoError(t, err)
	line, err := m.AddLine(ctx, "s1", product(1, 10), 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	o, err := m.Current(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, o.Items, 1)

	// A variation of the same product is a separate line.
	v := &domain.Variation{ID: 11, ProductID: 1, Title: "v", Price: decimal.NewFromInt(12)}
	_, err = m.AddLine(ctx, "s1", v, 1)
	require.NoError(t, err)
	o, err = m.Current(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, o.Items, 2)
}

func TestAddLineQuantityCap(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, "s1")
	require.NoError(t, err)

	_, err = m.AddLine(ctx, "s1", product(1, 10), 99)
	require.NoError(t, err)

	_, err = m.AddLine(ctx, "s1", product(1, 10), 1)
	require.Error(t, err)
	rej, ok := cart.Rejected(err)
	require.True(t, ok, "the cap is a domain rejection, not a fault")
	assert.Equal(t, "Cannot carry more than 99 of one item", rej.Reason)
}

func TestLastEditedStrictlyMonotonic(t *testing.T) {
	// A pinned clock makes consecutive mutations collide on wall time; the
	// engine must still advance LastEdited so staleness tokens change.
	fixed := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	m := NewMemoryWithClock(func() time.Time { return fixed })
	ctx := context.Background()
	_, err := m.Create(ctx, "s1")
	require.NoError(t, err)

	_, err = m.AddLine(ctx, "s1", product(1, 10), 1)
	require.NoError(t, err)
	o1, err := m.Current(ctx, "s1")
	require.NoError(t, err)

	_, err = m.AddLine(ctx, "s1", product(2, 10), 1)
	require.NoError(t, err)
	o2, err := m.Current(ctx, "s1")
	require.NoError(t, err)

	assert.True(t, o2.LastEdited.After(o1.LastEdited))
}

func TestSetLineQuantityZeroRemoves(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, "s1")
	require.NoError(t, err)
	line, err := m.AddLine(ctx, "s1", product(1, 10), 2)
	require.NoError(t, err)

	_, err = m.SetLineQuantity(ctx, "s1", line.ID, 0)
	require.NoError(t, err)

	o, err := m.Current(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, o.Items)

	_, err = m.SetLineQuantity(ctx, "s1", line.ID, 1)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)
}

func TestAdjustLine(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, "s1")
	require.NoError(t, err)
	line, err := m.AddLine(ctx, "s1", product(1, 10), 2)
	require.NoError(t, err)

	got, err := m.AdjustLine(ctx, "s1", line.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	_, err = m.AdjustLine(ctx, "s1", 999, 1)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)
}

func TestRecalcBuildsModifiers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, "s1")
	require.NoError(t, err)
	_, err = m.AddLine(ctx, "s1", product(1, 100), 1)
	require.NoError(t, err)

	coupon := &domain.Coupon{Code: "SAVE10", Percent: decimal.NewFromInt(10), Active: true}
	require.NoError(t, m.ApplyCoupon(ctx, "s1", coupon))
	rate := &domain.ShippingRate{ID: 5, MethodID: 3, ZoneID: 1, Title: "Courier", Amount: decimal.NewFromInt(7)}
	require.NoError(t, m.SetShippingMethod(ctx, "s1", rate))

	o, err := m.Current(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, o.Modifiers, 2)
	assert.Equal(t, domain.ModifierDiscount, o.Modifiers[0].Kind)
	assert.Equal(t, "-10.00", o.Modifiers[0].Amount.StringFixed(2))
	assert.Equal(t, domain.ModifierShipping, o.Modifiers[1].Kind)
	assert.Equal(t, "97.00", o.Total().StringFixed(2))
}

func TestPlaceOrderDetachesFromSession(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, "s1")
	require.NoError(t, err)
	_, err = m.AddLine(ctx, "s1", product(1, 10), 2)
	require.NoError(t, err)
	require.NoError(t, m.SetBuyer(ctx, "s1", domain.Buyer{Email: "a@b.test"}))

	placed, err := m.PlaceOrder(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, placed.Placed)
	assert.Equal(t, "a@b.test", placed.Buyer.Email)

	o, err := m.Current(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, o, "the session starts its next cart from scratch")
}

func TestPlaceOrderRejectsEmpty(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, "s1")
	require.NoError(t, err)

	_, err = m.PlaceOrder(ctx, "s1")
	require.Error(t, err)
	_, ok := cart.Rejected(err)
	assert.True(t, ok)
}

func TestHandedOutOrdersDoNotAliasState(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, "s1")
	require.NoError(t, err)
	_, err = m.AddLine(ctx, "s1", product(1, 10), 2)
	require.NoError(t, err)

	o, err := m.Current(ctx, "s1")
	require.NoError(t, err)
	o.Items[0].Quantity = 50

	fresh, err := m.Current(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Items[0].Quantity)
}
