package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLine struct {
	total float64
	vat   float64
}

func (f fakeLine) StoredTotal() float64 { return f.total }
func (f fakeLine) StoredVAT() float64   { return f.vat }

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		qty      float64
		value    float64
		markup   float64
		vat      float64
		expected float64
	}{
		{"single unit with markup and vat", 1, 100, 10, 20, 132.00},
		{"multiple units", 2, 200, 15, 20, 552.00},
		{"zero value product collapses to zero", 5, 0, 50, 20, 0},
		{"no markup no vat", 3, 10, 0, 0, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(tt.qty, tt.value, tt.markup, tt.vat)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestLineVAT(t *testing.T) {
	assert.InDelta(t, 22.00, LineVAT(1, 100, 10, 20), 1e-9)
	assert.InDelta(t, 92.00, LineVAT(2, 200, 15, 20), 1e-9)
	assert.InDelta(t, 0, LineVAT(5, 0, 50, 20), 1e-9)
}

func TestTotalMinusVATEqualsSubtotal(t *testing.T) {
	cases := [][4]float64{
		{1, 100, 10, 20},
		{2, 200, 15, 20},
		{7, 33.33, 12.5, 17.5},
		{1, 0.01, 0, 5},
	}
	for _, c := range cases {
		total := LineTotal(c[0], c[1], c[2], c[3])
		vat := LineVAT(c[0], c[1], c[2], c[3])
		subtotal := LineSubtotal(c[0], c[1], c[2])
		assert.InDelta(t, subtotal, total-vat, 1e-9)
	}
}

func TestSumTotalsAndVATs(t *testing.T) {
	items := []fakeLine{
		{total: 132.00, vat: 22.00},
		{total: 552.00, vat: 92.00},
	}
	assert.InDelta(t, 684.00, SumTotals(items), 1e-9)
	assert.InDelta(t, 114.00, SumVATs(items), 1e-9)

	assert.Zero(t, SumTotals([]fakeLine{}))
	assert.Zero(t, SumVATs([]fakeLine(nil)))
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 0.13, RoundMoney(0.125))
	assert.Equal(t, 1.0, RoundMoney(1.004))
	assert.Equal(t, 1.01, RoundMoney(1.006))
	assert.Equal(t, 132.00, RoundMoney(132.000000001))
	assert.Equal(t, 0.0, RoundMoney(0))
}
