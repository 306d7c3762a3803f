package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/thalesgaldino/silvershop-api/internal/domain"
)

// Memory is a mutex-guarded in-memory catalog. It backs tests and lets
// the server run without a database.
type Memory struct {
	mu         sync.RWMutex
	products   map[int64]domain.Product
	variations map[int64]domain.Variation
	coupons    map[string]domain.Coupon
	rates      []domain.ShippingRate
}

func NewMemory() *Memory {
	return &Memory{
		products:   make(map[int64]domain.Product),
		variations: make(map[int64]domain.Variation),
		coupons:    make(map[string]domain.Coupon),
	}
}

func (m *Memory) AddProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *Memory) AddVariation(v domain.Variation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variations[v.ID] = v
}

func (m *Memory) AddCoupon(c domain.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[strings.ToUpper(c.Code)] = c
}

func (m *Memory) AddRate(r domain.ShippingRate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = append(m.rates, r)
}

func (m *Memory) RemoveProduct(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

func (m *Memory) Product(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok || !p.Available {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) Variation(_ context.Context, id int64) (*domain.Variation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.variations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (m *Memory) VariationByAttributes(_ context.Context, productID int64, attrs map[string]string) (*domain.Variation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.variations))
	for id := range m.variations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		v := m.variations[id]
		if v.ProductID == productID && v.Matches(attrs) {
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ByCode(_ context.Context, code string) (*domain.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.coupons[strings.ToUpper(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) FirstForZone(_ context.Context, zoneID int64) (*domain.ShippingRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rates {
		if r.ZoneID == zoneID && r.MethodID != 0 {
			rate := r
			return &rate, nil
		}
	}
	return nil, ErrNotFound
}
