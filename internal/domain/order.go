package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the session-scoped cart aggregate. It is owned by the order
// engine; everything else works on copies handed out by the engine.
type Order struct {
	ID         int64
	SessionID  string
	LastEdited time.Time
	Items      []LineItem
	Modifiers  []Modifier
	Coupon     *Coupon
	Shipping   *ShippingRate
	Buyer      Buyer
	Placed     bool
}

// ItemCount is the total unit quantity across all lines, not the line count.
func (o *Order) ItemCount() int {
	n := 0
	for _, li := range o.Items {
		n += li.Quantity
	}
	return n
}

func (o *Order) SubTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.Items {
		total = total.Add(li.LineTotal())
	}
	return total
}

func (o *Order) Total() decimal.Decimal {
	total := o.SubTotal()
	for _, m := range o.Modifiers {
		total = total.Add(m.Amount)
	}
	return total
}

type LineItem struct {
	ID          int64
	ProductID   int64
	VariationID int64
	Title       string
	Quantity    int
	UnitPrice   decimal.Decimal
}

func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type ModifierKind string

const (
	ModifierDiscount ModifierKind = "discount"
	ModifierShipping ModifierKind = "shipping"
	ModifierTax      ModifierKind = "tax"
)

// Modifier adjusts the order total. Amount is signed: discounts carry a
// negative amount. ShownInTable mirrors which modifiers the storefront
// renders in the cart table.
type Modifier struct {
	ID           int64
	Kind         ModifierKind
	Title        string
	Amount       decimal.Decimal
	ShownInTable bool
}

type Buyer struct {
	FirstName string
	Surname   string
	Email     string
	Notes     string
}
