// Package totals computes document totals from line items. Every code path
// that needs a subtotal, tax or total (preview, save, update, PDF) goes
// through Calculate so the three never diverge numerically.
package totals

import "github.com/shopspring/decimal"

// TaxRate is the fixed consumption tax rate (10%).
var TaxRate = decimal.New(1, -1) // 0.1

// LineItem is one billable row as entered in the form.
type LineItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Amount returns quantity * unit price. The result is exact for whole-yen
// prices; it is never stored independently of its inputs.
func (li LineItem) Amount() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Valid reports whether the row counts toward totals: non-empty name,
// positive quantity and positive unit price.
func (li LineItem) Valid() bool {
	return li.Name != "" && li.Quantity > 0 && li.UnitPrice.IsPositive()
}

// Filter returns only the rows that count toward totals. Blank or
// zero-quantity rows from the form are dropped, not rejected.
func Filter(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, li := range items {
		if li.Valid() {
			out = append(out, li)
		}
	}
	return out
}

// Totals is the derived {subtotal, tax, total} triple.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Calculate sums the given items and derives tax and total.
// Tax is floor(subtotal * 0.1): truncated, not rounded, so the stored value
// matches the on-screen yen display. Callers are expected to Filter first
// when working with raw form rows.
func Calculate(items []LineItem) Totals {
	subtotal := decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.Amount())
	}

	tax := subtotal.Mul(TaxRate).Floor()

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
