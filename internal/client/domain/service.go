package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type CreateClientRequest struct {
	CompanyName string            `json:"company_name"`
	Address     string            `json:"address"`
	Phone       string            `json:"phone"`
	Email       string            `json:"email"`
	Metadata    datatypes.JSONMap `json:"metadata"`
}

type UpdateClientRequest struct {
	CompanyName *string           `json:"company_name"`
	Address     *string           `json:"address"`
	Phone       *string           `json:"phone"`
	Email       *string           `json:"email"`
	IsActive    *bool             `json:"is_active"`
	Metadata    datatypes.JSONMap `json:"metadata"`
}

type ListClientRequest struct {
	Search     string `form:"search"`
	ActiveOnly bool   `form:"active_only"`
}

type ListClientResponse struct {
	Clients []Client `json:"clients"`
}

type Service interface {
	Create(ctx context.Context, req CreateClientRequest) (Client, error)
	Update(ctx context.Context, id string, req UpdateClientRequest) (Client, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, req ListClientRequest) (ListClientResponse, error)
	GetByID(ctx context.Context, id string) (Client, error)

	// RefreshFinancials recomputes the cached rollups from all of the
	// client's invoices and payments. Full recompute, never a delta.
	RefreshFinancials(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidClientID      = errors.New("invalid_client_id")
	ErrInvalidCompanyName   = errors.New("invalid_company_name")
	ErrInvalidAddress       = errors.New("invalid_address")
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrDuplicateCompanyName = errors.New("duplicate_company_name")
	ErrNotFound             = errors.New("client_not_found")
	ErrHasInvoices          = errors.New("client_has_invoices")
)
