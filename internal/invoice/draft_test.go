package invoice

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/invoicer/internal/apperror"
	"github.com/diewo77/invoicer/validation"
)

func validDraft() Draft {
	return Draft{
		Sender:      Party{Name: "Alex Rivers", Email: "alex@yourcompany.com", Address: "123 Main St\nLos Angeles, CA 90001"},
		Client:      Party{Name: "Acme Corp", Email: "billing@acme.com", Address: "456 Corporate Blvd\nSan Francisco, CA 94111"},
		Number:      "INV-2025-001",
		InvoiceDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Currency:    "USD",
		TaxRate:     10,
		Items: []LineItem{
			{Description: "Design", Quantity: 2, Rate: dec("100.00")},
			{Description: "Hosting", Quantity: 1, Rate: dec("50.00")},
		},
	}
}

func TestDraftValidate_OK(t *testing.T) {
	assert.NoError(t, validDraft().Validate())
}

func TestDraftValidate_Violations(t *testing.T) {
	d := validDraft()
	d.Number = ""
	d.Client.Email = "nope"
	d.Currency = "JPY"
	d.TaxRate = 31
	d.DueDate = d.InvoiceDate.AddDate(0, 0, -1)
	d.Items = append(d.Items,
		LineItem{Description: "Bad qty", Quantity: 0, Rate: dec("1")},
		LineItem{Description: "Bad rate", Quantity: 1, Rate: dec("-1")},
		LineItem{Description: "", Quantity: -5, Rate: dec("-5")},
	)

	err := d.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	var v validation.Violations
	require.True(t, errors.As(err, &v))
	assert.Equal(t, validation.Violations{
		"number":            "required",
		"client.email":      "invalid_email",
		"currency":          "unknown_currency",
		"tax_rate":          "out_of_range",
		"due_date":          "before_invoice_date",
		"items[2].quantity": "must_be_positive",
		"items[3].rate":     "must_not_be_negative",
	}, v)
}

func TestDraftWithDefaults(t *testing.T) {
	now := time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)
	d := Draft{}.WithDefaults(now)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), d.InvoiceDate)
	assert.Equal(t, time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), d.DueDate)

	kept := validDraft().WithDefaults(now)
	assert.Equal(t, validDraft().DueDate, kept.DueDate)
}

func TestDraftMarshalItems(t *testing.T) {
	d := validDraft()
	d.Items = append(d.Items, LineItem{Description: "", Quantity: 1, Rate: dec("9")})
	raw, err := d.MarshalItems()
	require.NoError(t, err)

	var items []StoredItem
	require.NoError(t, json.Unmarshal(raw, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Design", items[0].Desc)
	assert.Equal(t, 2, items[0].Qty)
	assert.Equal(t, "200.00", items[0].Total.StringFixed(2))
	assert.Contains(t, string(raw), `"desc":"Hosting"`)
}
