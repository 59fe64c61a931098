package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/invoicer/internal/currency"
	"github.com/diewo77/invoicer/internal/invoice"
	"github.com/diewo77/invoicer/internal/models"
	"github.com/diewo77/invoicer/validation"
)

// TemplateStore is the part of the store the template service needs.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t *models.ClientTemplate) error
	ListTemplates(ctx context.Context) ([]models.ClientTemplate, error)
	GetTemplate(ctx context.Context, id uint) (*models.ClientTemplate, error)
	UpdateTemplate(ctx context.Context, t *models.ClientTemplate) error
	DeleteTemplate(ctx context.Context, id uint) error
}

// TemplateService manages saved client templates.
type TemplateService struct {
	store TemplateStore
	now   func() time.Time
}

func NewTemplateService(s TemplateStore) *TemplateService {
	return &TemplateService{store: s, now: time.Now}
}

// normalizeTemplate fills defaults and checks t before it is written.
func normalizeTemplate(t *models.ClientTemplate) error {
	t.TemplateName = strings.TrimSpace(t.TemplateName)
	t.ClientName = strings.TrimSpace(t.ClientName)
	if t.TemplateName == "" && t.ClientName != "" {
		t.TemplateName = models.DefaultName(t.ClientName)
	}
	if t.Currency == "" {
		t.Currency = currency.DefaultCode
	}

	v := make(validation.Violations)
	validation.Required("template_name", t.TemplateName, v)
	validation.Required("client_name", t.ClientName, v)
	validation.Email("client_email", t.ClientEmail, v)
	validation.Email("sender_email", t.SenderEmail, v)
	if _, err := currency.Lookup(t.Currency); err != nil {
		v["currency"] = "unknown_currency"
	}
	validation.RangeInt("tax_rate", t.TaxRate, 0, invoice.MaxDraftTaxRate, v)
	return v.Err()
}

func (s *TemplateService) Create(ctx context.Context, t *models.ClientTemplate) error {
	if err := normalizeTemplate(t); err != nil {
		return err
	}
	return s.store.CreateTemplate(ctx, t)
}

func (s *TemplateService) Update(ctx context.Context, t *models.ClientTemplate) error {
	if err := normalizeTemplate(t); err != nil {
		return err
	}
	return s.store.UpdateTemplate(ctx, t)
}

func (s *TemplateService) List(ctx context.Context) ([]models.ClientTemplate, error) {
	return s.store.ListTemplates(ctx)
}

func (s *TemplateService) Get(ctx context.Context, id uint) (*models.ClientTemplate, error) {
	return s.store.GetTemplate(ctx, id)
}

func (s *TemplateService) Delete(ctx context.Context, id uint) error {
	return s.store.DeleteTemplate(ctx, id)
}

// Draft returns a new invoice draft prefilled from template id: both
// parties, currency, tax rate and notes, dated today and due in 30 days.
// Number and items are left for the caller.
func (s *TemplateService) Draft(ctx context.Context, id uint) (invoice.Draft, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return invoice.Draft{}, err
	}
	d := invoice.Draft{
		Sender:   invoice.Party{Name: t.SenderName, Email: t.SenderEmail, Address: t.SenderAddress},
		Client:   invoice.Party{Name: t.ClientName, Email: t.ClientEmail, Address: t.ClientAddress},
		Currency: t.Currency,
		TaxRate:  t.TaxRate,
		Notes:    t.Notes,
	}
	return d.WithDefaults(s.now()), nil
}
