package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon codes are canonicalized upper-case before lookup and storage.
type Coupon struct {
	Code        string
	Percent     decimal.Decimal
	MinSubTotal decimal.Decimal
	Active      bool
	ValidFrom   time.Time
	ValidUntil  time.Time
}

// ValidFor is the coupon's validity predicate against the current order.
func (c *Coupon) ValidFor(o *Order, now time.Time) bool {
	if !c.Active {
		return false
	}
	if !c.ValidFrom.IsZero() && now.Before(c.ValidFrom) {
		return false
	}
	if !c.ValidUntil.IsZero() && now.After(c.ValidUntil) {
		return false
	}
	if o == nil {
		return false
	}
	return o.SubTotal().GreaterThanOrEqual(c.MinSubTotal)
}

// DiscountFor is the (negative) modifier amount the coupon contributes.
func (c *Coupon) DiscountFor(o *Order) decimal.Decimal {
	return o.SubTotal().Mul(c.Percent).Div(decimal.NewFromInt(100)).Neg().Round(2)
}
