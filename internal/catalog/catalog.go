package catalog

import (
	"context"
	"errors"

	"github.com/thalesgaldino/silvershop-api/internal/domain"
)

// ErrNotFound is returned when an identifier does not resolve to a
// currently existing catalog record.
var ErrNotFound = errors.New("catalog: not found")

// Catalog resolves product and variation identifiers.
type Catalog interface {
	Product(ctx context.Context, id int64) (*domain.Product, error)
	Variation(ctx context.Context, id int64) (*domain.Variation, error)
	VariationByAttributes(ctx context.Context, productID int64, attrs map[string]string) (*domain.Variation, error)
}

// Coupons looks coupons up by code, case-insensitively.
type Coupons interface {
	ByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

// ShippingRates resolves the first rate bound to a zone; ties are broken
// by the underlying collection order.
type ShippingRates interface {
	FirstForZone(ctx context.Context, zoneID int64) (*domain.ShippingRate, error)
}
