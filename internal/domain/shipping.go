package domain

import "github.com/shopspring/decimal"

// ShippingRate binds a shipping method to a zone. MethodID is what the
// order carries; ZoneID is what clients select by.
type ShippingRate struct {
	ID       int64
	MethodID int64
	ZoneID   int64
	Title    string
	Amount   decimal.Decimal
}
