package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals are the values derived from a document. Nothing here is clamped:
// a discount larger than subtotal plus tax gives a negative grand total.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxAmount  decimal.Decimal `json:"taxAmount"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// ComputeTotals derives subtotal, tax and grand total from the line items,
// tax rate and discount of d.
func ComputeTotals(d Document) Totals {
	subtotal := decimal.Zero
	for _, item := range d.LineItems {
		subtotal = subtotal.Add(item.Total())
	}
	tax := subtotal.Mul(decimal.NewFromFloat(d.TaxRate)).Div(hundred)
	grand := subtotal.Add(tax).Sub(decimal.NewFromFloat(d.Discount))

	return Totals{Subtotal: subtotal, TaxAmount: tax, GrandTotal: grand}
}

// FormatMoney renders an amount with exactly two fraction digits behind the
// currency symbol, e.g. "$6300.00" or "$-50.00".
func FormatMoney(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(2)
}

// ============================================================
// Read-only view consumed by the presentation layer
// ============================================================

// LineItemView is a line item together with its display strings.
type LineItemView struct {
	LineItem
	Total        string `json:"total"`
	RateDisplay  string `json:"rateDisplay"`
	TotalDisplay string `json:"totalDisplay"`
}

// TotalsView carries the derived totals as fixed two-digit strings.
type TotalsView struct {
	Subtotal        string `json:"subtotal"`
	TaxAmount       string `json:"taxAmount"`
	Discount        string `json:"discount"`
	GrandTotal      string `json:"grandTotal"`
	SubtotalDisplay string `json:"subtotalDisplay"`
	TaxDisplay      string `json:"taxDisplay"`
	DiscountDisplay string `json:"discountDisplay"`
	GrandDisplay    string `json:"grandTotalDisplay"`
}

// InvoiceView is returned by GET /v1/invoice.
type InvoiceView struct {
	Document Document       `json:"document"`
	Items    []LineItemView `json:"items"`
	Totals   TotalsView     `json:"totals"`
}

// NewInvoiceView assembles the presentation view for d and its totals.
func NewInvoiceView(d Document, t Totals) InvoiceView {
	sym := d.CurrencySymbol
	items := make([]LineItemView, 0, len(d.LineItems))
	for _, item := range d.LineItems {
		total := item.Total()
		items = append(items, LineItemView{
			LineItem:     item,
			Total:        total.StringFixed(2),
			RateDisplay:  FormatMoney(sym, decimal.NewFromFloat(item.Rate)),
			TotalDisplay: FormatMoney(sym, total),
		})
	}
	discount := decimal.NewFromFloat(d.Discount)

	return InvoiceView{
		Document: d,
		Items:    items,
		Totals: TotalsView{
			Subtotal:        t.Subtotal.StringFixed(2),
			TaxAmount:       t.TaxAmount.StringFixed(2),
			Discount:        discount.StringFixed(2),
			GrandTotal:      t.GrandTotal.StringFixed(2),
			SubtotalDisplay: FormatMoney(sym, t.Subtotal),
			TaxDisplay:      FormatMoney(sym, t.TaxAmount),
			DiscountDisplay: "-" + FormatMoney(sym, discount),
			GrandDisplay:    FormatMoney(sym, t.GrandTotal),
		},
	}
}
