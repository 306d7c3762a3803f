package cart

import (
	"github.com/shopspring/decimal"

	"github.com/thalesgaldino/silvershop-api/internal/domain"
)

// View is the full cart payload for the read-side "get cart" operation.
type View struct {
	ID          int64          `json:"id,omitempty"`
	Hash        string         `json:"hash"`
	TotalItems  int            `json:"total_items"`
	SubTotal    string         `json:"subtotal_price"`
	SubTotalFmt string         `json:"subtotal_price_nice"`
	Total       string         `json:"total_price"`
	TotalFmt    string         `json:"total_price_nice"`
	Items       []ItemView     `json:"items"`
	Modifiers   []ModifierView `json:"modifiers"`
	WishList    ListView       `json:"wish_list"`
	CompareList ListView       `json:"compare_list"`
	EnquiryList ListView       `json:"enquiry_list"`
}

type ItemView struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	VariationID int64  `json:"variation_id,omitempty"`
	Title       string `json:"title"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"price"`
	UnitFmt     string `json:"price_nice"`
	Total       string `json:"total_price"`
}

type ModifierView struct {
	ID       int64  `json:"modifier_id"`
	Title    string `json:"title"`
	Price    string `json:"price"`
	PriceFmt string `json:"price_nice"`
}

type ListView struct {
	Items []int64 `json:"items"`
	Total int     `json:"total_items"`
}

func newView(o *domain.Order, hash, currency string) *View {
	v := &View{
		Hash:      hash,
		Items:     []ItemView{},
		Modifiers: []ModifierView{},
	}
	if o == nil || len(o.Items) == 0 {
		v.SubTotal = "0"
		v.SubTotalFmt = "0"
		v.Total = "0"
		v.TotalFmt = "0"
		return v
	}
	v.ID = o.ID
	v.TotalItems = o.ItemCount()
	v.SubTotal = o.SubTotal().StringFixed(2)
	v.SubTotalFmt = nicePrice(o.SubTotal(), currency)
	v.Total = o.Total().StringFixed(2)
	v.TotalFmt = nicePrice(o.Total(), currency)
	for _, li := range o.Items {
		v.Items = append(v.Items, ItemView{
			ID:          li.ID,
			ProductID:   li.ProductID,
			VariationID: li.VariationID,
			Title:       li.Title,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice.StringFixed(2),
			UnitFmt:     nicePrice(li.UnitPrice, currency),
			Total:       li.LineTotal().StringFixed(2),
		})
	}
	// Only table-visible modifiers reach the client.
	for _, m := range o.Modifiers {
		if !m.ShownInTable {
			continue
		}
		v.Modifiers = append(v.Modifiers, ModifierView{
			ID:       m.ID,
			Title:    m.Title,
			Price:    m.Amount.StringFixed(2),
			PriceFmt: nicePrice(m.Amount, currency),
		})
	}
	return v
}

func nicePrice(d decimal.Decimal, currency string) string {
	return currency + d.StringFixed(2)
}
