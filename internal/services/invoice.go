package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/diewo77/invoicer/internal/apperror"
	"github.com/diewo77/invoicer/internal/currency"
	"github.com/diewo77/invoicer/internal/invoice"
	"github.com/diewo77/invoicer/internal/logo"
	"github.com/diewo77/invoicer/internal/mailer"
	"github.com/diewo77/invoicer/internal/models"
	"github.com/diewo77/invoicer/internal/store"
	"github.com/diewo77/invoicer/validation"
)

// InvoiceStore is the part of the store the invoice service needs.
type InvoiceStore interface {
	SaveInvoiceRecord(ctx context.Context, r *models.InvoiceRecord) error
	GetInvoiceRecord(ctx context.Context, id uint) (*models.InvoiceRecord, error)
	GetInvoicePDF(ctx context.Context, id uint) (*store.InvoicePDF, error)
	GetLogo(ctx context.Context) ([]byte, error)
	SetLogo(ctx context.Context, data []byte) error
}

// Renderer turns a draft and an optional logo into PDF bytes.
type Renderer interface {
	Render(d invoice.Draft, logo []byte) ([]byte, error)
}

// Sender delivers email.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, msg mailer.Message) error
}

// EmailOptions override the generated subject and body. To defaults to the
// client's email.
type EmailOptions struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type InvoiceService struct {
	store    InvoiceStore
	renderer Renderer
	sender   Sender
	log      *zap.Logger
	now      func() time.Time
}

func NewInvoiceService(s InvoiceStore, r Renderer, sender Sender, log *zap.Logger) *InvoiceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &InvoiceService{store: s, renderer: r, sender: sender, log: log, now: time.Now}
}

// Prepare applies the form defaults and validates d.
func (s *InvoiceService) Prepare(d invoice.Draft) (invoice.Draft, error) {
	d = d.WithDefaults(s.now())
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// Preview computes the totals of a draft without rendering or storing it.
func (s *InvoiceService) Preview(_ context.Context, d invoice.Draft) (invoice.Draft, invoice.Totals, error) {
	d, err := s.Prepare(d)
	if err != nil {
		return d, invoice.Totals{}, err
	}
	totals, err := d.Totals()
	return d, totals, err
}

// Generate renders d with the current logo and stores it in the history.
// Nothing is stored when validation or rendering fails.
func (s *InvoiceService) Generate(ctx context.Context, d invoice.Draft) (*models.InvoiceRecord, error) {
	d, totals, err := s.Preview(ctx, d)
	if err != nil {
		return nil, err
	}
	pdf, err := s.render(ctx, d)
	if err != nil {
		return nil, err
	}
	rec, err := models.NewInvoiceRecord(d, totals, pdf)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveInvoiceRecord(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info("invoice generated",
		zap.Uint("id", rec.ID),
		zap.String("number", rec.InvoiceNumber),
		zap.String("total", rec.Total.StringFixed(2)),
		zap.String("currency", rec.Currency),
	)
	return rec, nil
}

// Render produces the PDF of d without storing it.
func (s *InvoiceService) Render(ctx context.Context, d invoice.Draft) ([]byte, error) {
	d, err := s.Prepare(d)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, d)
}

func (s *InvoiceService) render(ctx context.Context, d invoice.Draft) ([]byte, error) {
	logoData, err := s.store.GetLogo(ctx)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	return s.renderer.Render(d, logoData)
}

// EmailEnabled reports whether Send and SendRecord can deliver.
func (s *InvoiceService) EmailEnabled() bool { return s.sender.Enabled() }

// Send renders d and emails it. The draft is not added to the history.
func (s *InvoiceService) Send(ctx context.Context, d invoice.Draft, opts EmailOptions) error {
	if !s.sender.Enabled() {
		return mailer.ErrDisabled
	}
	d, totals, err := s.Preview(ctx, d)
	if err != nil {
		return err
	}
	pdf, err := s.render(ctx, d)
	if err != nil {
		return err
	}
	msg, err := invoiceMessage(d, totals, opts, pdf)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, msg)
}

// SendRecord emails a stored invoice PDF.
func (s *InvoiceService) SendRecord(ctx context.Context, id uint, opts EmailOptions) error {
	if !s.sender.Enabled() {
		return mailer.ErrDisabled
	}
	rec, err := s.store.GetInvoiceRecord(ctx, id)
	if err != nil {
		return err
	}
	pdf, err := s.store.GetInvoicePDF(ctx, id)
	if err != nil {
		return err
	}
	d := invoice.Draft{
		Sender:   invoice.Party{Name: rec.SenderName, Email: rec.SenderEmail},
		Client:   invoice.Party{Name: rec.ClientName, Email: rec.ClientEmail},
		Number:   rec.InvoiceNumber,
		DueDate:  rec.DueDate,
		Currency: rec.Currency,
	}
	msg, err := invoiceMessage(d, invoice.Totals{Total: rec.Total}, opts, pdf.Data)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, msg)
}

func invoiceMessage(d invoice.Draft, totals invoice.Totals, opts EmailOptions, pdf []byte) (mailer.Message, error) {
	to := opts.To
	if to == "" {
		to = d.Client.Email
	}
	if to == "" {
		return mailer.Message{}, validation.Violations{"to": "required"}
	}
	subject := opts.Subject
	if subject == "" {
		subject = DefaultSubject(d)
	}
	body := opts.Body
	if body == "" {
		total, err := currency.Format(totals.Total, d.Currency)
		if err != nil {
			return mailer.Message{}, err
		}
		body = DefaultBody(d, total)
	}
	return mailer.Message{
		From:       d.Sender.Email,
		To:         to,
		Subject:    subject,
		Body:       body,
		Attachment: &mailer.Attachment{Name: models.PDFFilename(d.Number), Data: pdf},
	}, nil
}

// DefaultSubject is "Invoice {number} from {sender}".
func DefaultSubject(d invoice.Draft) string {
	return fmt.Sprintf("Invoice %s from %s", d.Number, d.Sender.Name)
}

// DefaultBody is the cover letter sent with an invoice when none is given.
func DefaultBody(d invoice.Draft, formattedTotal string) string {
	return fmt.Sprintf(`Dear %s,

Please find attached invoice %s for %s.

Payment is due by %s.

Thank you for your business!

Best regards,
%s`, d.Client.Name, d.Number, formattedTotal, d.DueDate.Format("2006-01-02"), d.Sender.Name)
}

// SetLogo validates raw image bytes, normalizes them to PNG and stores them
// as the current logo.
func (s *InvoiceService) SetLogo(ctx context.Context, raw []byte) (logo.Info, error) {
	info, err := logo.Inspect(raw)
	if err != nil {
		return info, err
	}
	normalized, err := logo.Normalize(raw)
	if err != nil {
		return info, err
	}
	if err := s.store.SetLogo(ctx, normalized); err != nil {
		return info, err
	}
	s.log.Info("logo updated", zap.String("format", info.Format), zap.Int("width", info.Width), zap.Int("height", info.Height))
	return info, nil
}
