// Package domain contains persistence models for clients.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Client is an advertiser the station bills. The three financial fields are
// cached rollups, always recomputed in full from invoices and payments.
type Client struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyName string       `gorm:"not null;uniqueIndex:ux_clients_company_name" json:"company_name"`
	Address     string       `gorm:"not null" json:"address"`
	Phone       string       `gorm:"type:text" json:"phone,omitempty"`
	Email       string       `gorm:"type:text" json:"email,omitempty"`

	TotalInvoiced      int64 `gorm:"not null;default:0" json:"total_invoiced"`
	TotalPaid          int64 `gorm:"not null;default:0" json:"total_paid"`
	OutstandingBalance int64 `gorm:"not null;default:0" json:"outstanding_balance"`

	IsActive  bool              `gorm:"not null;default:true" json:"is_active"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }
