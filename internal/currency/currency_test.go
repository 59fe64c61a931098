package currency

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/invoicer/internal/apperror"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		code   string
		want   string
	}{
		{"dollars with grouping", "1234.5", "USD", "$1,234.50"},
		{"zero euro", "0", "EUR", "€0.00"},
		{"pounds", "99.999", "GBP", "£100.00"},
		{"millions", "1234567.891", "USD", "$1,234,567.89"},
		{"half up", "0.125", "USD", "$0.13"},
		{"beyond float precision", "1234567890123456.78", "USD", "$1,234,567,890,123,456.78"},
		{"negative", "-1234.5", "USD", "$-1,234.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(decimal.RequireFromString(tt.amount), tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatUnknownCurrency(t *testing.T) {
	_, err := Format(decimal.NewFromInt(10), "JPY")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCurrency))
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestFormatSymbolAfter(t *testing.T) {
	reg := Registry{"SEK": {Code: "SEK", Symbol: "kr", Name: "Swedish Krona", Position: After}}
	got, err := reg.Format(decimal.RequireFromString("2500"), "SEK")
	require.NoError(t, err)
	assert.Equal(t, "2,500.00kr", got)
}

func TestLabelAndCodes(t *testing.T) {
	c, err := Lookup("GBP")
	require.NoError(t, err)
	assert.Equal(t, "British Pound (GBP)", c.Label())
	assert.Equal(t, []string{"USD", "GBP", "EUR"}, Codes())
	assert.Len(t, All(), 3)
}
