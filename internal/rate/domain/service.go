package domain

import (
	"context"
	"errors"
)

type CreateRateRequest struct {
	Category    string `json:"category"`
	Duration    string `json:"duration"`
	TimeSlot    string `json:"time_slot"`
	Platform    string `json:"platform"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
}

type UpdateRateRequest struct {
	Category    *string `json:"category"`
	Duration    *string `json:"duration"`
	TimeSlot    *string `json:"time_slot"`
	Platform    *string `json:"platform"`
	Price       *int64  `json:"price"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type ListRateRequest struct {
	Category   string `form:"category"`
	ActiveOnly bool   `form:"active_only"`
}

type ListRateResponse struct {
	Rates []Rate `json:"rates"`
}

type Service interface {
	Create(ctx context.Context, req CreateRateRequest) (Rate, error)
	Update(ctx context.Context, id string, req UpdateRateRequest) (Rate, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, req ListRateRequest) (ListRateResponse, error)
	GetByID(ctx context.Context, id string) (Rate, error)
}

var (
	ErrInvalidRateID   = errors.New("invalid_rate_id")
	ErrNotFound        = errors.New("rate_not_found")
	ErrInvalidCategory = errors.New("invalid_rate_category")
	ErrInvalidAmount   = errors.New("invalid_rate_amount")
)
