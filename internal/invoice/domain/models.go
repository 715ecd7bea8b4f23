// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusPending   InvoiceStatus = "pending"
	StatusPartial   InvoiceStatus = "partial"
	StatusPaid      InvoiceStatus = "paid"
	StatusCancelled InvoiceStatus = "cancelled"
)

// InvoiceType distinguishes the two document labels. Computation rules are
// identical for both.
type InvoiceType string

const (
	TypeProforma    InvoiceType = "proforma"
	TypeAdvanceBill InvoiceType = "advance_bill"
)

// Invoice is a proforma or advance bill issued to one client. All amounts
// are int64 minor units (kobo).
type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceNumber string        `gorm:"not null;uniqueIndex:ux_invoices_number" json:"invoice_number"`
	ClientID      snowflake.ID  `gorm:"not null;index" json:"client_id"`
	InvoiceType   InvoiceType   `gorm:"type:text;not null;default:'proforma'" json:"invoice_type"`
	InvoiceDate   time.Time     `gorm:"not null" json:"invoice_date"`
	TotalSlots    int64         `gorm:"not null;default:0" json:"total_slots"`
	Subtotal      int64         `gorm:"not null;default:0" json:"subtotal"`
	VATRate       float64       `gorm:"not null;default:7.5" json:"vat_rate"`
	VATAmount     int64         `gorm:"not null;default:0" json:"vat_amount"`
	TotalAmount   int64         `gorm:"not null;default:0" json:"total_amount"`
	AmountInWords string        `gorm:"type:text" json:"amount_in_words"`

	AdvanceRequired    int64 `gorm:"not null;default:0" json:"advance_required"`
	AmountPaid         int64 `gorm:"not null;default:0" json:"amount_paid"`
	OutstandingBalance int64 `gorm:"not null;default:0" json:"outstanding_balance"`

	Status       InvoiceStatus `gorm:"type:text;not null;default:'pending';index" json:"status"`
	PaymentTerms string        `gorm:"type:text" json:"payment_terms,omitempty"`
	Notes        string        `gorm:"type:text" json:"notes,omitempty"`

	Lines []InvoiceLine `gorm:"-" json:"lines,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceLine is one billable service line on an invoice.
type InvoiceLine struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID    snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	LineNo       int          `gorm:"not null" json:"line_no"`
	Description  string       `gorm:"not null" json:"description"`
	Duration     string       `gorm:"type:text" json:"duration,omitempty"`
	DailySlots   int64        `gorm:"not null" json:"daily_slots"`
	CampaignDays int64        `gorm:"not null" json:"campaign_days"`
	RatePerSlot  int64        `gorm:"not null" json:"rate_per_slot"`
	TotalSlots   int64        `gorm:"not null" json:"total_slots"`
	LineTotal    int64        `gorm:"not null" json:"line_total"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceLine) TableName() string { return "invoice_lines" }

// DefaultPaymentTerms mirrors the terms printed on every advance bill unless
// overridden per invoice.
const DefaultPaymentTerms = "This bill is issued in advance and payment must be made before commencement of broadcast."
