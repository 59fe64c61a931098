package models

import "time"

// ClientTemplate stores the reusable parties and defaults for a client.
type ClientTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TemplateName string `gorm:"size:255;not null" json:"template_name"`

	// Client block
	ClientName    string `gorm:"size:255;not null" json:"client_name"`
	ClientEmail   string `gorm:"size:255" json:"client_email,omitempty"`
	ClientAddress string `gorm:"type:text" json:"client_address,omitempty"`

	// Sender block
	SenderName    string `gorm:"size:255" json:"sender_name,omitempty"`
	SenderEmail   string `gorm:"size:255" json:"sender_email,omitempty"`
	SenderAddress string `gorm:"type:text" json:"sender_address,omitempty"`

	Currency string `gorm:"size:3;not null;default:'USD'" json:"currency"`
	TaxRate  int    `gorm:"not null;default:0" json:"tax_rate"`
	Notes    string `gorm:"type:text" json:"notes,omitempty"`
}

// DefaultName is the template name offered for a client, e.g. "Template - Acme".
func DefaultName(clientName string) string {
	return "Template - " + clientName
}
