package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Rate is one advertised price on the station rate card. Price is in kobo.
// Category is the service sold ("Advert Spot", "Jingle Production"), Duration
// the spot length ("30s", "60s"), TimeSlot the daypart ("Prime", "Off-Peak")
// and Platform where it airs ("Radio", "Facebook").
type Rate struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Category    string       `json:"category"`
	Duration    string       `json:"duration"`
	TimeSlot    string       `json:"time_slot"`
	Platform    string       `json:"platform"`
	Price       int64        `json:"price"`
	Description string       `json:"description"`
	IsActive    bool         `json:"is_active"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Rate) TableName() string {
	return "rates"
}
