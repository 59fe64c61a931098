// Package handlers exposes the invoice services as a JSON HTTP API.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/diewo77/invoicer/httpx"
	"github.com/diewo77/invoicer/internal/invoice"
	"github.com/diewo77/invoicer/validation"
)

const dateLayout = "2006-01-02"

// fail writes err and logs it when it is a server-side failure.
func fail(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	if status := httpx.Status(err); status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	httpx.Error(w, err)
}

// pathID parses the {id} wildcard. It writes a 400 and returns false when the
// id is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(id), true
}

func parseDate(field, value string, v validation.Violations) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		v[field] = "invalid_date"
		return time.Time{}
	}
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// draftRequest is the wire form of an invoice draft. Dates are YYYY-MM-DD;
// empty dates and currency take the form defaults.
type draftRequest struct {
	Sender      invoice.Party      `json:"sender"`
	Client      invoice.Party      `json:"client"`
	Number      string             `json:"number"`
	InvoiceDate string             `json:"invoice_date,omitempty"`
	DueDate     string             `json:"due_date,omitempty"`
	Currency    string             `json:"currency,omitempty"`
	TaxRate     int                `json:"tax_rate"`
	Items       []invoice.LineItem `json:"items"`
	Notes       string             `json:"notes,omitempty"`
}

func (req draftRequest) draft() (invoice.Draft, error) {
	v := make(validation.Violations)
	d := invoice.Draft{
		Sender:      req.Sender,
		Client:      req.Client,
		Number:      req.Number,
		InvoiceDate: parseDate("invoice_date", req.InvoiceDate, v),
		DueDate:     parseDate("due_date", req.DueDate, v),
		Currency:    req.Currency,
		TaxRate:     req.TaxRate,
		Items:       req.Items,
		Notes:       req.Notes,
	}
	return d, v.Err()
}

func newDraftRequest(d invoice.Draft) draftRequest {
	items := d.Items
	if items == nil {
		items = []invoice.LineItem{}
	}
	return draftRequest{
		Sender:      d.Sender,
		Client:      d.Client,
		Number:      d.Number,
		InvoiceDate: formatDate(d.InvoiceDate),
		DueDate:     formatDate(d.DueDate),
		Currency:    d.Currency,
		TaxRate:     d.TaxRate,
		Items:       items,
		Notes:       d.Notes,
	}
}
