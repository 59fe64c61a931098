// Package currency renders invoice amounts for the supported currencies.
package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/diewo77/invoicer/internal/apperror"
)

// ErrInvalidCurrency is returned for codes missing from the registry.
var ErrInvalidCurrency = fmt.Errorf("%w: unknown currency", apperror.ErrValidation)

// Position tells on which side of the number the symbol goes.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
)

// Currency describes how one currency code is displayed.
type Currency struct {
	Code     string   `json:"code"`
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
}

// Label is the "Name (CODE)" form used in the invoice metadata block.
func (c Currency) Label() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Code)
}

// Registry maps an ISO code to its display settings.
type Registry map[string]Currency

// Default is the registry used by the application.
var Default = Registry{
	"USD": {Code: "USD", Symbol: "$", Name: "US Dollar", Position: Before},
	"GBP": {Code: "GBP", Symbol: "£", Name: "British Pound", Position: Before},
	"EUR": {Code: "EUR", Symbol: "€", Name: "Euro", Position: Before},
}

// order in which codes are offered to users.
var defaultOrder = []string{"USD", "GBP", "EUR"}

// DefaultCode is used when a request does not name a currency.
const DefaultCode = "USD"

var printer = message.NewPrinter(language.English)

// Lookup returns the settings for code.
func (r Registry) Lookup(code string) (Currency, error) {
	c, ok := r[code]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return c, nil
}

// Format renders amount with two decimals, thousands separators and the
// currency symbol, e.g. "$1,234.50".
func (r Registry) Format(amount decimal.Decimal, code string) (string, error) {
	c, err := r.Lookup(code)
	if err != nil {
		return "", err
	}
	return c.Format(amount), nil
}

// Format renders amount using c's symbol and position. The integer part is
// grouped as an int64 and the cents are taken from the decimal, so no
// floating point is involved.
func (c Currency) Format(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	abs := rounded.Abs()
	whole := abs.Truncate(0)
	f := printer.Sprint(number.Decimal(whole.IntPart())) + abs.Sub(whole).StringFixed(2)[1:]
	if rounded.IsNegative() {
		f = "-" + f
	}
	if c.Position == After {
		return f + c.Symbol
	}
	return c.Symbol + f
}

// Lookup resolves code in the Default registry.
func Lookup(code string) (Currency, error) { return Default.Lookup(code) }

// Format formats amount in the Default registry.
func Format(amount decimal.Decimal, code string) (string, error) {
	return Default.Format(amount, code)
}

// Codes lists the Default registry codes in display order.
func Codes() []string {
	out := make([]string, len(defaultOrder))
	copy(out, defaultOrder)
	return out
}

// All lists the Default registry entries in display order.
func All() []Currency {
	out := make([]Currency, 0, len(defaultOrder))
	for _, code := range defaultOrder {
		out = append(out, Default[code])
	}
	return out
}
