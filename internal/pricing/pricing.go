// Package pricing computes charged totals and VAT for priced line items.
// All functions are pure; callers decide when to round.
package pricing

import "math"

// Priced is implemented by anything carrying stored line totals.
type Priced interface {
	StoredTotal() float64
	StoredVAT() float64
}

// LineTotal returns the charged total for a line:
// quantity x unit value, marked up, VAT inclusive.
func LineTotal(quantity, unitValue, markupPercent, vatPercent float64) float64 {
	return quantity * unitValue * (1 + markupPercent/100) * (1 + vatPercent/100)
}

// LineVAT returns the VAT portion of the charged total.
func LineVAT(quantity, unitValue, markupPercent, vatPercent float64) float64 {
	return quantity * unitValue * (1 + markupPercent/100) * (vatPercent / 100)
}

// LineSubtotal returns the marked-up total before VAT.
func LineSubtotal(quantity, unitValue, markupPercent float64) float64 {
	return quantity * unitValue * (1 + markupPercent/100)
}

// SumTotals sums the stored per-line totals. The stored values are
// authoritative once a line exists; nothing is recomputed here.
func SumTotals[T Priced](items []T) float64 {
	var sum float64
	for _, it := range items {
		sum += it.StoredTotal()
	}
	return sum
}

// SumVATs sums the stored per-line VAT amounts.
func SumVATs[T Priced](items []T) float64 {
	var sum float64
	for _, it := range items {
		sum += it.StoredVAT()
	}
	return sum
}

// RoundMoney rounds half-up to two decimal places. Applied only at the
// persistence and display boundaries; intermediate arithmetic stays at
// full precision.
func RoundMoney(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
