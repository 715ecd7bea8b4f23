// Package domain contains the singleton station record and its contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Station is the single billing entity all documents are issued under.
// Exactly one row exists; the guard column enforces that at the store.
type Station struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Guard         int16        `gorm:"column:guard;not null;default:1;uniqueIndex:ux_stations_guard" json:"-"`
	Name          string       `gorm:"not null" json:"name"`
	Address       string       `gorm:"not null" json:"address"`
	Phone         string       `gorm:"type:text" json:"phone,omitempty"`
	Email         string       `gorm:"type:text" json:"email,omitempty"`
	BankName      string       `gorm:"type:text" json:"bank_name,omitempty"`
	AccountName   string       `gorm:"type:text" json:"account_name,omitempty"`
	AccountNumber string       `gorm:"type:text" json:"account_number,omitempty"`
	LogoURL       string       `gorm:"type:text" json:"logo_url,omitempty"`

	InvoicePrefix  string `gorm:"not null;default:'EFM/ADV/'" json:"invoice_prefix"`
	InvoiceCounter int64  `gorm:"not null;default:0" json:"invoice_counter"`
	ReceiptPrefix  string `gorm:"not null;default:'REC/'" json:"receipt_prefix"`
	ReceiptCounter int64  `gorm:"not null;default:0" json:"receipt_counter"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Station) TableName() string { return "stations" }
