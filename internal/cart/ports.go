package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/thalesgaldino/silvershop-api/internal/domain"
)

// Buyable is anything the engine can turn into an order line.
// *domain.Product and *domain.Variation both qualify.
type Buyable interface {
	BuyableID() int64
	BuyableVariationID() int64
	BuyableTitle() string
	BuyablePrice() decimal.Decimal
}

// ErrLineNotFound is returned by the engine for line operations against
// an id the order does not carry.
var ErrLineNotFound = errors.New("line item not found")

// RejectedError is a domain-rule refusal from the engine (out of stock,
// quantity cap, empty order on place). It is not a fault: the reason is
// safe to surface to the client verbatim.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return e.Reason }

// Rejected reports whether err is an engine domain rejection.
func Rejected(err error) (*RejectedError, bool) {
	var r *RejectedError
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// OrderEngine owns cart/order persistence, pricing and line mutation.
// Current returns (nil, nil) when the session has no order yet; orders
// are created lazily by the first mutation that needs one. The engine is
// responsible for serializing concurrent writes to the same order and
// for keeping LastEdited monotonically increasing across mutations.
type OrderEngine interface {
	Current(ctx context.Context, sessionID string) (*domain.Order, error)
	Create(ctx context.Context, sessionID string) (*domain.Order, error)
	AddLine(ctx context.Context, sessionID string, item Buyable, quantity int) (*domain.LineItem, error)
	SetLineQuantity(ctx context.Context, sessionID string, lineID int64, quantity int) (*domain.LineItem, error)
	AdjustLine(ctx context.Context, sessionID string, lineID int64, delta int) (*domain.LineItem, error)
	ClearLines(ctx context.Context, sessionID string) error
	ApplyCoupon(ctx context.Context, sessionID string, coupon *domain.Coupon) error
	SetShippingMethod(ctx context.Context, sessionID string, rate *domain.ShippingRate) error
	SetBuyer(ctx context.Context, sessionID string, buyer domain.Buyer) error
	Recalculate(ctx context.Context, sessionID string) error
	PlaceOrder(ctx context.Context, sessionID string) (*domain.Order, error)
}
