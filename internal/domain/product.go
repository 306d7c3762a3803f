package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID        int64
	Title     string
	Price     decimal.Decimal
	Available bool
}

func (p *Product) BuyableID() int64              { return p.ID }
func (p *Product) BuyableVariationID() int64     { return 0 }
func (p *Product) BuyableTitle() string          { return p.Title }
func (p *Product) BuyablePrice() decimal.Decimal { return p.Price }

// Variation is a concrete purchasable variant of a product, selected by
// an attribute set (e.g. {"Colour": "Red", "Size": "M"}).
type Variation struct {
	ID         int64
	ProductID  int64
	Title      string
	Price      decimal.Decimal
	Attributes map[string]string
}

func (v *Variation) BuyableID() int64              { return v.ProductID }
func (v *Variation) BuyableVariationID() int64     { return v.ID }
func (v *Variation) BuyableTitle() string          { return v.Title }
func (v *Variation) BuyablePrice() decimal.Decimal { return v.Price }

// Matches reports whether every requested attribute is present on the
// variation with the same value. A variation with extra attributes still
// matches a subset selection; the first match wins at the lookup layer.
func (v *Variation) Matches(attrs map[string]string) bool {
	if len(attrs) == 0 {
		return false
	}
	for k, want := range attrs {
		if got, ok := v.Attributes[k]; !ok || got != want {
			return false
		}
	}
	return true
}
