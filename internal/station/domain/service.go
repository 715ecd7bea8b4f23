package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type UpdateStationRequest struct {
	Name          *string `json:"name"`
	Address       *string `json:"address"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	BankName      *string `json:"bank_name"`
	AccountName   *string `json:"account_name"`
	AccountNumber *string `json:"account_number"`
	LogoURL       *string `json:"logo_url"`
	InvoicePrefix *string `json:"invoice_prefix"`
	ReceiptPrefix *string `json:"receipt_prefix"`
}

// Service owns the station singleton and document numbering. The sequencer
// methods run against the caller's transaction so a number is only consumed
// when the owning document commits.
type Service interface {
	Get(ctx context.Context) (Station, error)
	Update(ctx context.Context, req UpdateStationRequest) (Station, error)
	NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (string, error)
	NextReceiptNumber(ctx context.Context, tx *gorm.DB) (string, error)
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidAddress = errors.New("invalid_address")
	ErrInvalidPrefix  = errors.New("invalid_prefix")
	ErrSequencing     = errors.New("sequencing_failed")
)
