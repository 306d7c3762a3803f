// Package engine provides the order engine the cart façade mutates
// through. The in-memory implementation keeps one order per session in a
// mutex-guarded map and serializes all writes; callers get copies, so a
// handed-out order never aliases engine state.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thalesgaldino/silvershop-api/internal/cart"
	"github.com/thalesgaldino/silvershop-api/internal/domain"
)

// maxLineQuantity caps a single order line.
const maxLineQuantity = 99

type Memory struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	nextOrder int64
	nextLine  int64
	nextMod   int64
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		orders:    make(map[string]*domain.Order),
		nextOrder: 1,
		nextLine:  1,
		nextMod:   1,
		now:       time.Now,
	}
}

// NewMemoryWithClock pins the engine clock, for tests.
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := NewMemory()
	m.now = now
	return m
}

func (m *Memory) Current(_ context.Context, sessionID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[sessionID]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (m *Memory) Create(_ context.Context, sessionID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[sessionID]; ok {
		return cloneOrder(o), nil
	}
	o := &domain.Order{
		ID:         m.nextOrder,
		SessionID:  sessionID,
		LastEdited: m.now(),
	}
	m.nextOrder++
	m.orders[sessionID] = o
	return cloneOrder(o), nil
}

func (m *Memory) AddLine(_ context.Context, sessionID string, item cart.Buyable, quantity int) (*domain.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[sessionID]
	if !ok {
		return nil, fmt.Errorf("no order for session %s", sessionID)
	}

	// Lines merge on (product, variation) identity.
	for i := range o.Items {
		li := &o.Items[i]
		if li.ProductID == item.BuyableID() && li.VariationID == item.BuyableVariationID() {
			if li.Quantity+quantity > maxLineQuantity {
				return nil, &cart.RejectedError{Reason: fmt.Sprintf("Cannot carry more than %d of one item", maxLineQuantity)}
			}
			li.Quantity += quantity
			m.touch(o)
			m.recalc(o)
			line := *li
			return &line, nil
		}
	}

	if quantity > maxLineQuantity {
		return nil, &cart.RejectedError{Reason: fmt.Sprintf("Cannot carry more than %d of one item", maxLineQuantity)}
	}
	o.Items = append(o.Items, domain.LineItem{
		ID:          m.nextLine,
		ProductID:   item.BuyableID(),
		VariationID: item.BuyableVariationID(),
		Title:       item.BuyableTitle(),
		Quantity:    quantity,
		UnitPrice:   item.BuyablePrice(),
	})
	m.nextLine++
	m.touch(o)
	m.recalc(o)
	line := o.Items[len(o.Items)-1]
	return &line, nil
}

func (m *Memory) SetLineQuantity(_ context.Context, sessionID string, lineID int64, quantity int) (*domain.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[sessionID]
	if !ok {
		return nil, cart.ErrLineNotFound
	}
	for i := range o.Items {
		if o.Items[i].ID != lineID {
			continue
		}
		if quantity > maxLineQuantity {
			return nil, &cart.RejectedError{Reason: fmt.Sprintf("Cannot carry more than %d of one item", maxLineQuantity)}
		}
		if quantity <= 0 {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			m.touch(o)
			m.recalc(o)
			return &domain.LineItem{ID: lineID}, nil
		}
		o.Items[i].Quantity = quantity
		m.touch(o)
		m.recalc(o)
		line := o.Items[i]
		return &line, nil
	}
	return nil, cart.ErrLineNotFound
}

func (m *Memory) AdjustLine(ctx context.Context, sessionID string, lineID int64, delta int) (*domain.LineItem, error) {
	m.mu.Lock()
	current := 0
	found := false
	if o, ok := m.orders[sessionID]; ok {
		for i := range o.Items {
			if o.Items[i].ID == lineID {
				current = o.Items[i].Quantity
				found = true
				break
			}
		}
	}
	m.mu.Unlock()
	if !found {
		return nil, cart.ErrLineNotFound
	}
	return m.SetLineQuantity(ctx, sessionID, lineID, current+delta)
}

func (m *Memory) ClearLines(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[sessionID]
	if !ok {
		return nil
	}
	o.Items = nil
	m.touch(o)
	m.recalc(o)
	return nil
}

func (m *Memory) ApplyCoupon(_ context.Context, sessionID string, coupon *domain.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[sessionID]
	if !ok {
		return fmt.Errorf("no order for session %s", sessionID)
	}
	o.Coupon = coupon
	m.touch(o)
	m.recalc(o)
	return nil
}

func (m *Memory) SetShippingMethod(_ context.Context, sessionID string, rate *domain.ShippingRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[sessionID]
	if !ok {
		return fmt.Errorf("no order for session %s", sessionID)
	}
	o.Shipping = rate
	m.touch(o)
	m.recalc(o)
	return nil
}

func (m *Memory) SetBuyer(_ context.Context, sessionID string, buyer domain.Buyer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[sessionID]
	if !ok {
		return fmt.Errorf("no order for session %s", sessionID)
	}
	o.Buyer = buyer
	m.touch(o)
	return nil
}

func (m *Memory) Recalculate(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[sessionID]
	if !ok {
		return fmt.Errorf("no order for session %s", sessionID)
	}
	m.recalc(o)
	return nil
}

// PlaceOrder finalizes and detaches the order; the session starts its
// next cart from scratch.
func (m *Memory) PlaceOrder(_ context.Context, sessionID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[sessionID]
	if !ok || len(o.Items) == 0 {
		return nil, &cart.RejectedError{Reason: "Cannot place an empty order"}
	}
	m.recalc(o)
	o.Placed = true
	placed := cloneOrder(o)
	delete(m.orders, sessionID)
	return placed, nil
}

// touch advances LastEdited, strictly: two mutations within the clock's
// resolution still produce distinct timestamps.
func (m *Memory) touch(o *domain.Order) {
	t := m.now()
	if !t.After(o.LastEdited) {
		t = o.LastEdited.Add(time.Nanosecond)
	}
	o.LastEdited = t
}

// recalc rebuilds the modifier set from the order's coupon and shipping
// selection.
func (m *Memory) recalc(o *domain.Order) {
	mods := o.Modifiers[:0:0]
	if o.Coupon != nil && len(o.Items) > 0 {
		mods = append(mods, domain.Modifier{
			ID:           m.nextMod,
			Kind:         domain.ModifierDiscount,
			Title:        "Discount (" + o.Coupon.Code + ")",
			Amount:       o.Coupon.DiscountFor(o),
			ShownInTable: true,
		})
		m.nextMod++
	}
	if o.Shipping != nil {
		mods = append(mods, domain.Modifier{
			ID:           m.nextMod,
			Kind:         domain.ModifierShipping,
			Title:        o.Shipping.Title,
			Amount:       o.Shipping.Amount,
			ShownInTable: true,
		})
		m.nextMod++
	}
	o.Modifiers = mods
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.LineItem(nil), o.Items...)
	c.Modifiers = append([]domain.Modifier(nil), o.Modifiers...)
	return &c
}
