package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/diewo77/invoicer/httpx"
	"github.com/diewo77/invoicer/internal/currency"
	"github.com/diewo77/invoicer/internal/invoice"
	"github.com/diewo77/invoicer/internal/models"
	"github.com/diewo77/invoicer/internal/services"
	"github.com/diewo77/invoicer/internal/store"
	"github.com/diewo77/invoicer/validation"
)

// InvoiceHistory is the read/delete side of the invoice history.
type InvoiceHistory interface {
	SearchInvoiceRecords(ctx context.Context, q store.SearchQuery) ([]models.InvoiceRecord, error)
	GetInvoiceRecord(ctx context.Context, id uint) (*models.InvoiceRecord, error)
	GetInvoicePDF(ctx context.Context, id uint) (*store.InvoicePDF, error)
	DeleteInvoiceRecord(ctx context.Context, id uint) error
}

type InvoiceHandler struct {
	svc     *services.InvoiceService
	history InvoiceHistory
	log     *zap.Logger
}

func NewInvoiceHandler(svc *services.InvoiceService, history InvoiceHistory, log *zap.Logger) *InvoiceHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InvoiceHandler{svc: svc, history: history, log: log}
}

type lineResponse struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Rate        string `json:"rate"`
	Amount      string `json:"amount"`
}

type totalsResponse struct {
	Subtotal  string            `json:"subtotal"`
	Tax       string            `json:"tax"`
	Total     string            `json:"total"`
	Formatted map[string]string `json:"formatted"`
}

func newTotalsResponse(t invoice.Totals, c currency.Currency) totalsResponse {
	return totalsResponse{
		Subtotal: t.Subtotal.StringFixed(2),
		Tax:      t.Tax.StringFixed(2),
		Total:    t.Total.StringFixed(2),
		Formatted: map[string]string{
			"subtotal": c.Format(t.Subtotal),
			"tax":      c.Format(t.Tax),
			"total":    c.Format(t.Total),
		},
	}
}

type previewResponse struct {
	Draft  draftRequest   `json:"draft"`
	Items  []lineResponse `json:"items"`
	Totals totalsResponse `json:"totals"`
}

type recordResponse struct {
	ID            uint           `json:"id"`
	InvoiceNumber string         `json:"invoice_number"`
	InvoiceDate   string         `json:"invoice_date"`
	DueDate       string         `json:"due_date"`
	ClientName    string         `json:"client_name"`
	ClientEmail   string         `json:"client_email,omitempty"`
	SenderName    string         `json:"sender_name,omitempty"`
	SenderEmail   string         `json:"sender_email,omitempty"`
	Currency      string         `json:"currency"`
	TaxRate       int            `json:"tax_rate"`
	Totals        totalsResponse `json:"totals"`
	Items         []lineResponse `json:"items"`
	CreatedAt     time.Time      `json:"created_at"`
	PDFURL        string         `json:"pdf_url"`
}

func newRecordResponse(rec *models.InvoiceRecord) (recordResponse, error) {
	c, err := currency.Lookup(rec.Currency)
	if err != nil {
		return recordResponse{}, err
	}
	stored, err := rec.LineItems()
	if err != nil {
		return recordResponse{}, err
	}
	items := make([]lineResponse, 0, len(stored))
	for _, it := range stored {
		items = append(items, lineResponse{
			Description: it.Desc,
			Quantity:    it.Qty,
			Rate:        it.Rate.StringFixed(2),
			Amount:      it.Total.StringFixed(2),
		})
	}
	totals := invoice.Totals{Subtotal: rec.Subtotal, Tax: rec.Tax, Total: rec.Total}
	return recordResponse{
		ID:            rec.ID,
		InvoiceNumber: rec.InvoiceNumber,
		InvoiceDate:   formatDate(rec.InvoiceDate),
		DueDate:       formatDate(rec.DueDate),
		ClientName:    rec.ClientName,
		ClientEmail:   rec.ClientEmail,
		SenderName:    rec.SenderName,
		SenderEmail:   rec.SenderEmail,
		Currency:      rec.Currency,
		TaxRate:       rec.TaxRate,
		Totals:        newTotalsResponse(totals, c),
		Items:         items,
		CreatedAt:     rec.CreatedAt,
		PDFURL:        fmt.Sprintf("/invoices/%d/pdf", rec.ID),
	}, nil
}

func (h *InvoiceHandler) decodeDraft(r *http.Request) (invoice.Draft, error) {
	var req draftRequest
	if err := httpx.Decode(r, &req); err != nil {
		return invoice.Draft{}, err
	}
	return req.draft()
}

// Preview: POST /invoices/preview
func (h *InvoiceHandler) Preview(w http.ResponseWriter, r *http.Request) {
	d, err := h.decodeDraft(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	d, totals, err := h.svc.Preview(r.Context(), d)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	c, err := currency.Lookup(d.Currency)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	billable := d.Billable()
	items := make([]lineResponse, 0, len(billable))
	for _, it := range billable {
		items = append(items, lineResponse{
			Description: it.Description,
			Quantity:    it.Quantity,
			Rate:        it.Rate.StringFixed(2),
			Amount:      it.Amount().StringFixed(2),
		})
	}
	httpx.JSON(w, http.StatusOK, previewResponse{
		Draft:  newDraftRequest(d),
		Items:  items,
		Totals: newTotalsResponse(totals, c),
	})
}

// Create: POST /invoices renders, stores and returns the new history record.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	d, err := h.decodeDraft(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	rec, err := h.svc.Generate(r.Context(), d)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	resp, err := newRecordResponse(rec)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/invoices/%d", rec.ID))
	httpx.JSON(w, http.StatusCreated, resp)
}

// List: GET /invoices?q=&since=YYYY-MM-DD
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := store.SearchQuery{Text: strings.TrimSpace(r.URL.Query().Get("q"))}
	if s := r.URL.Query().Get("since"); s != "" {
		v := make(validation.Violations)
		since := parseDate("since", s, v)
		if err := v.Err(); err != nil {
			fail(w, r, h.log, err)
			return
		}
		q.Since = &since
	}
	recs, err := h.history.SearchInvoiceRecords(r.Context(), q)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	items := make([]recordResponse, 0, len(recs))
	for i := range recs {
		resp, err := newRecordResponse(&recs[i])
		if err != nil {
			fail(w, r, h.log, err)
			return
		}
		items = append(items, resp)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// View: GET /invoices/{id}
func (h *InvoiceHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.history.GetInvoiceRecord(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	resp, err := newRecordResponse(rec)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// PDF: GET /invoices/{id}/pdf downloads the stored document.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	pdf, err := h.history.GetInvoicePDF(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writePDF(w, models.PDFFilename(pdf.InvoiceNumber), pdf.Data)
}

// Render: POST /invoices/pdf renders a draft without storing it.
func (h *InvoiceHandler) Render(w http.ResponseWriter, r *http.Request) {
	d, err := h.decodeDraft(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	data, err := h.svc.Render(r.Context(), d)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writePDF(w, models.PDFFilename(d.Number), data)
}

func writePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Delete: DELETE /invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.history.DeleteInvoiceRecord(r.Context(), id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type emailDraftRequest struct {
	draftRequest
	Email services.EmailOptions `json:"email"`
}

// Email: POST /invoices/email renders a draft and sends it to the client.
func (h *InvoiceHandler) Email(w http.ResponseWriter, r *http.Request) {
	var req emailDraftRequest
	if err := httpx.Decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	d, err := req.draft()
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.svc.Send(r.Context(), d, req.Email); err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// EmailRecord: POST /invoices/{id}/email sends a stored invoice. The body is optional.
func (h *InvoiceHandler) EmailRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var opts services.EmailOptions
	if r.ContentLength != 0 {
		if err := httpx.Decode(r, &opts); err != nil {
			fail(w, r, h.log, err)
			return
		}
	}
	if err := h.svc.SendRecord(r.Context(), id, opts); err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}
