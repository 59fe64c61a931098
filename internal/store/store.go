// Package store persists templates, invoice history and the logo slot.
//
// Every method is a single atomic unit against the database and maps driver
// errors onto apperror kinds: a missing row is ErrNotFound, anything else is
// ErrPersistence.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/invoicer/internal/apperror"
	"github.com/diewo77/invoicer/internal/invoice"
	"github.com/diewo77/invoicer/internal/models"
)

// Store wraps a gorm handle. It is safe for concurrent use.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle, for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperror.Persistence(op, err)
}

func notFoundOr(op, resource string, id any, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource, id)
	}
	return wrap(op, err)
}

// ─── Templates ───────────────────────────────────────────────────────────────

// CreateTemplate inserts t and fills its id and timestamps.
func (s *Store) CreateTemplate(ctx context.Context, t *models.ClientTemplate) error {
	t.ID = 0
	return wrap("create template", s.db.WithContext(ctx).Create(t).Error)
}

// ListTemplates returns all templates, newest first.
func (s *Store) ListTemplates(ctx context.Context) ([]models.ClientTemplate, error) {
	var out []models.ClientTemplate
	err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&out).Error
	if err != nil {
		return nil, wrap("list templates", err)
	}
	return out, nil
}

func (s *Store) GetTemplate(ctx context.Context, id uint) (*models.ClientTemplate, error) {
	var t models.ClientTemplate
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFoundOr("get template", "template", id, err)
	}
	return &t, nil
}

// UpdateTemplate overwrites every editable field of the template t.ID.
func (s *Store) UpdateTemplate(ctx context.Context, t *models.ClientTemplate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ClientTemplate
		if err := tx.Select("id", "created_at").First(&existing, t.ID).Error; err != nil {
			return notFoundOr("update template", "template", t.ID, err)
		}
		t.CreatedAt = existing.CreatedAt
		return wrap("update template", tx.Save(t).Error)
	})
}

func (s *Store) DeleteTemplate(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.ClientTemplate{}, id)
	if res.Error != nil {
		return wrap("delete template", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("template", id)
	}
	return nil
}

// ─── Invoice history ─────────────────────────────────────────────────────────

// SaveInvoiceRecord inserts one history row, PDF bytes included.
func (s *Store) SaveInvoiceRecord(ctx context.Context, r *models.InvoiceRecord) error {
	r.ID = 0
	return wrap("save invoice", s.db.WithContext(ctx).Create(r).Error)
}

// SearchQuery filters the invoice history. Zero values match everything.
type SearchQuery struct {
	// Text is matched case-insensitively against invoice number, client name
	// and client email.
	Text string
	// Since keeps records whose invoice date is on or after it.
	Since *time.Time
}

// summaryColumns are loaded by searches; pdf_data is left out.
var summaryColumns = []string{
	"id", "created_at", "invoice_number", "invoice_date", "due_date",
	"client_name", "client_email", "sender_name",
	"subtotal", "tax", "total", "currency", "tax_rate", "items_json",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchInvoiceRecords returns matching records, newest first, without PDF data.
func (s *Store) SearchInvoiceRecords(ctx context.Context, q SearchQuery) ([]models.InvoiceRecord, error) {
	tx := s.db.WithContext(ctx).Model(&models.InvoiceRecord{}).Select(summaryColumns)
	if text := strings.TrimSpace(q.Text); text != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
		tx = tx.Where(
			`LOWER(invoice_number) LIKE ? ESCAPE '\' OR LOWER(client_name) LIKE ? ESCAPE '\' OR LOWER(client_email) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}
	if q.Since != nil {
		tx = tx.Where("invoice_date >= ?", invoice.Day(*q.Since))
	}
	var out []models.InvoiceRecord
	if err := tx.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, wrap("search invoices", err)
	}
	return out, nil
}

// GetInvoiceRecord loads a record's summary, without PDF data.
func (s *Store) GetInvoiceRecord(ctx context.Context, id uint) (*models.InvoiceRecord, error) {
	var r models.InvoiceRecord
	if err := s.db.WithContext(ctx).Select(summaryColumns).First(&r, id).Error; err != nil {
		return nil, notFoundOr("get invoice", "invoice", id, err)
	}
	return &r, nil
}

// InvoicePDF is a stored document together with its invoice number.
type InvoicePDF struct {
	InvoiceNumber string
	Data          []byte
}

func (s *Store) GetInvoicePDF(ctx context.Context, id uint) (*InvoicePDF, error) {
	var r models.InvoiceRecord
	err := s.db.WithContext(ctx).Select("id", "invoice_number", "pdf_data").First(&r, id).Error
	if err != nil {
		return nil, notFoundOr("get invoice pdf", "invoice", id, err)
	}
	return &InvoicePDF{InvoiceNumber: r.InvoiceNumber, Data: r.PDFData}, nil
}

func (s *Store) DeleteInvoiceRecord(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.InvoiceRecord{}, id)
	if res.Error != nil {
		return wrap("delete invoice", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("invoice", id)
	}
	return nil
}

// ─── Logo ────────────────────────────────────────────────────────────────────

// SetLogo replaces the stored logo. Delete and insert share one transaction,
// so readers see either the old logo or the new one.
func (s *Store) SetLogo(ctx context.Context, data []byte) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.LogoSetting{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.LogoSetting{LogoData: data}).Error
	})
	return wrap("set logo", err)
}

// GetLogo returns the stored logo bytes, or ErrNotFound when there is none.
func (s *Store) GetLogo(ctx context.Context) ([]byte, error) {
	var l models.LogoSetting
	if err := s.db.WithContext(ctx).Order("id DESC").First(&l).Error; err != nil {
		return nil, notFoundOr("get logo", "logo", "current", err)
	}
	return l.LogoData, nil
}

// DeleteLogo clears the slot. Clearing an empty slot is not an error.
func (s *Store) DeleteLogo(ctx context.Context) error {
	return wrap("delete logo", s.db.WithContext(ctx).Where("1 = 1").Delete(&models.LogoSetting{}).Error)
}
