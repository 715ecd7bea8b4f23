package domain

import (
	"context"
	"errors"
	"time"

	clientdomain "github.com/smallbiznis/airbill/internal/client/domain"
	stationdomain "github.com/smallbiznis/airbill/internal/station/domain"
)

type LineInput struct {
	Description  string `json:"description"`
	Duration     string `json:"duration"`
	DailySlots   int64  `json:"daily_slots"`
	CampaignDays int64  `json:"campaign_days"`
	RatePerSlot  int64  `json:"rate_per_slot"`
}

type CreateInvoiceRequest struct {
	ClientID        string      `json:"client_id"`
	InvoiceType     InvoiceType `json:"invoice_type"`
	InvoiceDate     *time.Time  `json:"invoice_date"`
	Lines           []LineInput `json:"lines"`
	VATRate         *float64    `json:"vat_rate"`
	AdvanceRequired int64       `json:"advance_required"`
	PaymentTerms    string      `json:"payment_terms"`
	Notes           string      `json:"notes"`
}

// UpdateInvoiceRequest patches an editable invoice. Nil fields are left
// untouched. Status accepts only the manual states plus pending, which puts
// a draft back on the automatic track.
type UpdateInvoiceRequest struct {
	InvoiceType     *InvoiceType   `json:"invoice_type"`
	InvoiceDate     *time.Time     `json:"invoice_date"`
	Lines           []LineInput    `json:"lines"`
	VATRate         *float64       `json:"vat_rate"`
	AdvanceRequired *int64         `json:"advance_required"`
	PaymentTerms    *string        `json:"payment_terms"`
	Notes           *string        `json:"notes"`
	Status          *InvoiceStatus `json:"status"`
}

type ListInvoiceRequest struct {
	ClientID string        `form:"client_id"`
	Status   InvoiceStatus `form:"status"`
}

type ListInvoiceResponse struct {
	Invoices []Invoice `json:"invoices"`
}

// Snapshot is the render-ready view of one invoice, handed to external
// presentation components. No rendering concern leaks back into the ledger.
type Snapshot struct {
	Invoice  Invoice               `json:"invoice"`
	Client   clientdomain.Client   `json:"client"`
	Station  stationdomain.Station `json:"station"`
	Payments []PaymentSummary      `json:"payments"`
}

// PaymentSummary is the slice of payment data presentation needs.
type PaymentSummary struct {
	ID            string    `json:"id"`
	ReceiptNumber string    `json:"receipt_number"`
	Amount        int64     `json:"amount"`
	Method        string    `json:"method"`
	DateReceived  time.Time `json:"date_received"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	Update(ctx context.Context, id string, req UpdateInvoiceRequest) (Invoice, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	Snapshot(ctx context.Context, id string) (Snapshot, error)
}

var (
	ErrInvalidInvoiceID = errors.New("invalid_invoice_id")
	ErrNotFound         = errors.New("invoice_not_found")
	ErrClientNotFound   = errors.New("client_not_found")
	ErrInvalidType      = errors.New("invalid_invoice_type")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrManualStatusOnly = errors.New("status_not_manually_assignable")
	ErrInvalidAdvance   = errors.New("invalid_advance_required")
	ErrNotEditable      = errors.New("invoice_not_editable")
	ErrNotDeletable     = errors.New("invoice_not_deletable")
)
