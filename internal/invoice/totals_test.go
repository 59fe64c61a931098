package invoice

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/invoicer/internal/apperror"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotals_DesignAndHosting(t *testing.T) {
	items := []LineItem{
		{Description: "Design", Quantity: 2, Rate: dec("100.00")},
		{Description: "Hosting", Quantity: 1, Rate: dec("50.00")},
	}
	got, err := ComputeTotals(items, 10)
	require.NoError(t, err)
	assert.Equal(t, "250.00", got.Subtotal.StringFixed(2))
	assert.Equal(t, "25.00", got.Tax.StringFixed(2))
	assert.Equal(t, "275.00", got.Total.StringFixed(2))
}

func TestComputeTotals_Empty(t *testing.T) {
	for _, items := range [][]LineItem{nil, {}, {{Description: "  ", Quantity: 3, Rate: dec("10")}}} {
		got, err := ComputeTotals(items, 20)
		require.NoError(t, err)
		assert.True(t, got.Subtotal.IsZero())
		assert.True(t, got.Tax.IsZero())
		assert.True(t, got.Total.IsZero())
		assert.Equal(t, "0.00", got.Total.StringFixed(2))
	}
}

func TestComputeTotals_IgnoresUndescribedItems(t *testing.T) {
	items := []LineItem{
		{Description: "Consulting", Quantity: 3, Rate: dec("80")},
		{Description: "", Quantity: 5, Rate: dec("1000")},
	}
	got, err := ComputeTotals(items, 0)
	require.NoError(t, err)
	assert.Equal(t, "240.00", got.Total.StringFixed(2))
}

func TestComputeTotals_RoundsTaxHalfUp(t *testing.T) {
	tests := []struct {
		rate    string
		taxRate int
		tax     string
	}{
		{"1.25", 10, "0.13"},  // 0.125
		{"0.05", 10, "0.01"},  // 0.005
		{"0.04", 10, "0.00"},  // 0.004
		{"33.33", 7, "2.33"},  // 2.3331
		{"19.99", 15, "3.00"}, // 2.9985
	}
	for _, tt := range tests {
		t.Run(tt.rate, func(t *testing.T) {
			got, err := ComputeTotals([]LineItem{{Description: "x", Quantity: 1, Rate: dec(tt.rate)}}, tt.taxRate)
			require.NoError(t, err)
			assert.Equal(t, tt.tax, got.Tax.StringFixed(2))
		})
	}
}

func TestComputeTotals_TotalIsSubtotalPlusRoundedTax(t *testing.T) {
	rates := []string{"0", "0.01", "0.99", "1.25", "17.5", "99.99", "1234.56", "100000"}
	for r := 0; r <= MaxDraftTaxRate; r++ {
		for _, rate := range rates {
			for qty := 1; qty <= 3; qty++ {
				got, err := ComputeTotals([]LineItem{{Description: "item", Quantity: qty, Rate: dec(rate)}}, r)
				require.NoError(t, err)
				want := got.Subtotal.Add(got.Subtotal.Mul(decimal.NewFromInt(int64(r))).Div(decimal.NewFromInt(100)).Round(2))
				assert.Truef(t, got.Total.Equal(want), "rate=%d amount=%s total=%s want=%s", r, rate, got.Total, want)
				assert.Truef(t, got.Total.GreaterThanOrEqual(got.Subtotal), "total below subtotal for rate=%d", r)
			}
		}
	}
}

func TestComputeTotals_OutOfRange(t *testing.T) {
	for _, r := range []int{-1, 101, 250} {
		_, err := ComputeTotals(nil, r)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOutOfRange))
		assert.True(t, errors.Is(err, apperror.ErrValidation))
	}
	// The calculator itself accepts anything up to 100.
	_, err := ComputeTotals(nil, 100)
	assert.NoError(t, err)
}

func TestLineItemAmount(t *testing.T) {
	li := LineItem{Description: "Hours", Quantity: 3, Rate: dec("33.335")}
	assert.Equal(t, "100.01", li.Amount().StringFixed(2))
}
