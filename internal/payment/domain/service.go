package domain

import (
	"context"
	"errors"
	"time"
)

type RecordPaymentRequest struct {
	InvoiceID     string     `json:"invoice_id"`
	Amount        int64      `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
	Reference     string     `json:"reference"`
	Notes         string     `json:"notes"`
	ReceivedBy    string     `json:"received_by"`
	Position      string     `json:"position"`
	DateReceived  *time.Time `json:"date_received"`
}

type ListPaymentRequest struct {
	InvoiceID string `form:"invoice_id"`
}

type ListPaymentResponse struct {
	Payments []Payment `json:"payments"`
}

// Receipt is the render-ready view of one payment, handed to external
// presentation components.
type Receipt struct {
	Payment       Payment `json:"payment"`
	InvoiceNumber string  `json:"invoice_number"`
	ClientName    string  `json:"client_name"`
	AmountInWords string  `json:"amount_in_words"`
	StationName   string  `json:"station_name"`
}

type Service interface {
	Record(ctx context.Context, req RecordPaymentRequest) (Payment, error)
	List(ctx context.Context, req ListPaymentRequest) (ListPaymentResponse, error)
	GetByID(ctx context.Context, id string) (Payment, error)
	Receipt(ctx context.Context, id string) (Receipt, error)
}

var (
	ErrInvalidPaymentID = errors.New("invalid_payment_id")
	ErrNotFound         = errors.New("payment_not_found")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrInvalidAmount    = errors.New("invalid_payment_amount")
	ErrInvalidMethod    = errors.New("invalid_payment_method")
	ErrOverpayment      = errors.New("payment_exceeds_outstanding_balance")
	ErrInvoiceClosed    = errors.New("invoice_not_payable")
)
