package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/diewo77/invoicer/internal/apperror"
)

// ErrOutOfRange is returned when a tax rate falls outside [0, 100].
var ErrOutOfRange = fmt.Errorf("%w: out of range", apperror.ErrValidation)

// MaxTaxRate is the highest rate the calculator accepts. Drafts are further
// limited to MaxDraftTaxRate.
const MaxTaxRate = 100

var hundred = decimal.NewFromInt(100)

// Totals holds the derived amounts of an invoice, each rounded to cents.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals derives subtotal, tax and total from items and a percent rate.
// Items without a description are ignored. Tax is rounded half-up to two places.
func ComputeTotals(items []LineItem, taxRate int) (Totals, error) {
	if taxRate < 0 || taxRate > MaxTaxRate {
		return Totals{}, fmt.Errorf("%w: tax rate %d", ErrOutOfRange, taxRate)
	}
	subtotal := decimal.Zero
	for _, it := range items {
		if !it.Billable() {
			continue
		}
		subtotal = subtotal.Add(it.Amount())
	}
	tax := subtotal.Mul(decimal.NewFromInt(int64(taxRate))).Div(hundred).Round(2)
	return Totals{
		Subtotal: subtotal.Round(2),
		Tax:      tax,
		Total:    subtotal.Add(tax).Round(2),
	}, nil
}
