// Package invoice holds the request-scoped invoice draft and its arithmetic.
package invoice

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/invoicer/internal/currency"
	"github.com/diewo77/invoicer/validation"
)

// MaxDraftTaxRate bounds the rate a user can put on an invoice.
const MaxDraftTaxRate = 30

// DefaultPaymentTerm is added to the invoice date when no due date is given.
const DefaultPaymentTerm = 30 * 24 * time.Hour

// LineItem is one billable row.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

// Billable reports whether the item counts; rows without a description are dropped.
func (li LineItem) Billable() bool {
	return strings.TrimSpace(li.Description) != ""
}

// Amount is quantity × rate, rounded to cents.
func (li LineItem) Amount() decimal.Decimal {
	return li.Rate.Mul(decimal.NewFromInt(int64(li.Quantity))).Round(2)
}

// Party is the identity block of the sender or the client.
type Party struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// Draft is everything needed to render one invoice. It is built per request
// and never stored as such.
type Draft struct {
	Sender      Party      `json:"sender"`
	Client      Party      `json:"client"`
	Number      string     `json:"number"`
	InvoiceDate time.Time  `json:"invoice_date"`
	DueDate     time.Time  `json:"due_date"`
	Currency    string     `json:"currency"`
	TaxRate     int        `json:"tax_rate"`
	Items       []LineItem `json:"items"`
	Notes       string     `json:"notes"`
}

// Billable returns the items that appear on the invoice, in order.
func (d Draft) Billable() []LineItem {
	out := make([]LineItem, 0, len(d.Items))
	for _, it := range d.Items {
		if it.Billable() {
			out = append(out, it)
		}
	}
	return out
}

// Totals computes the draft's subtotal, tax and total.
func (d Draft) Totals() (Totals, error) {
	return ComputeTotals(d.Items, d.TaxRate)
}

// WithDefaults fills the optional fields the form used to prefill.
func (d Draft) WithDefaults(now time.Time) Draft {
	if d.Currency == "" {
		d.Currency = currency.DefaultCode
	}
	if d.InvoiceDate.IsZero() {
		d.InvoiceDate = Day(now)
	}
	if d.DueDate.IsZero() {
		d.DueDate = d.InvoiceDate.Add(DefaultPaymentTerm)
	}
	return d
}

// Validate checks the draft before anything is rendered or stored.
func (d Draft) Validate() error {
	v := make(validation.Violations)
	validation.Required("number", d.Number, v)
	validation.Required("sender.name", d.Sender.Name, v)
	validation.Required("client.name", d.Client.Name, v)
	validation.Email("sender.email", d.Sender.Email, v)
	validation.Email("client.email", d.Client.Email, v)
	if _, err := currency.Lookup(d.Currency); err != nil {
		v["currency"] = "unknown_currency"
	}
	validation.RangeInt("tax_rate", d.TaxRate, 0, MaxDraftTaxRate, v)
	if d.InvoiceDate.IsZero() {
		v["invoice_date"] = "required"
	}
	if d.DueDate.IsZero() {
		v["due_date"] = "required"
	} else if d.DueDate.Before(d.InvoiceDate) {
		v["due_date"] = "before_invoice_date"
	}
	for i, it := range d.Items {
		if !it.Billable() {
			continue
		}
		field := "items[" + strconv.Itoa(i) + "]"
		validation.PositiveInt(field+".quantity", it.Quantity, v)
		if it.Rate.IsNegative() {
			v[field+".rate"] = "must_not_be_negative"
		}
	}
	return v.Err()
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

// StoredItem is the history form of a line item, amount included.
type StoredItem struct {
	Desc  string          `json:"desc"`
	Qty   int             `json:"qty"`
	Rate  decimal.Decimal `json:"rate"`
	Total decimal.Decimal `json:"total"`
}

// MarshalItems serializes the billable items for the history record.
func (d Draft) MarshalItems() ([]byte, error) {
	billable := d.Billable()
	out := make([]StoredItem, 0, len(billable))
	for _, it := range billable {
		out = append(out, StoredItem{Desc: it.Description, Qty: it.Quantity, Rate: it.Rate, Total: it.Amount()})
	}
	return json.Marshal(out)
}
