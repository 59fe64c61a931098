package models

import "time"

// LogoSetting holds the single company logo used on rendered invoices.
// The table never has more than one row.
type LogoSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LogoData  []byte    `gorm:"not null" json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}
