package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/diewo77/invoicer/internal/invoice"
)

// InvoiceRecord is one generated invoice kept in the history, PDF included.
// Records are append-only and only ever deleted as a whole.
type InvoiceRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Invoice identification
	InvoiceNumber string    `gorm:"size:100;not null;index" json:"invoice_number"`
	InvoiceDate   time.Time `gorm:"not null;index" json:"invoice_date"`
	DueDate       time.Time `gorm:"not null" json:"due_date"`

	ClientName  string `gorm:"size:255;not null" json:"client_name"`
	ClientEmail string `gorm:"size:255" json:"client_email,omitempty"`
	SenderName  string `gorm:"size:255" json:"sender_name,omitempty"`
	SenderEmail string `gorm:"size:255" json:"sender_email,omitempty"`

	// Totals, stored rounded to cents
	Subtotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Tax      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	Total    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Currency string          `gorm:"size:3;not null" json:"currency"`
	TaxRate  int             `gorm:"not null;default:0" json:"tax_rate"`

	Items   datatypes.JSON `gorm:"column:items_json" json:"items"`
	PDFData []byte         `gorm:"column:pdf_data" json:"-"`
}

// TableName keeps the historical table name.
func (InvoiceRecord) TableName() string { return "invoice_history" }

// NewInvoiceRecord snapshots a rendered draft for the history.
func NewInvoiceRecord(d invoice.Draft, totals invoice.Totals, pdf []byte) (*InvoiceRecord, error) {
	items, err := d.MarshalItems()
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return &InvoiceRecord{
		InvoiceNumber: d.Number,
		InvoiceDate:   invoice.Day(d.InvoiceDate),
		DueDate:       invoice.Day(d.DueDate),
		ClientName:    d.Client.Name,
		ClientEmail:   d.Client.Email,
		SenderName:    d.Sender.Name,
		SenderEmail:   d.Sender.Email,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		Currency:      d.Currency,
		TaxRate:       d.TaxRate,
		Items:         datatypes.JSON(items),
		PDFData:       pdf,
	}, nil
}

// LineItems decodes the stored item snapshot.
func (r *InvoiceRecord) LineItems() ([]invoice.StoredItem, error) {
	if len(r.Items) == 0 {
		return nil, nil
	}
	var items []invoice.StoredItem
	if err := json.Unmarshal(r.Items, &items); err != nil {
		return nil, fmt.Errorf("decode items of invoice %s: %w", r.InvoiceNumber, err)
	}
	return items, nil
}

// Filename is the download/attachment name of the record's PDF.
func (r *InvoiceRecord) Filename() string {
	return PDFFilename(r.InvoiceNumber)
}

// PDFFilename is the name given to a rendered invoice, e.g. "Invoice_INV-1.pdf".
func PDFFilename(number string) string {
	return fmt.Sprintf("Invoice_%s.pdf", number)
}
