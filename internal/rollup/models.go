package rollup

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Backlog is one client awaiting a rollup retry. The client_id unique index
// keeps repeated failures from piling up entries.
type Backlog struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	ClientID   snowflake.ID `json:"client_id" gorm:"uniqueIndex"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
	Attempts   int          `json:"attempts"`
	LastError  string       `json:"last_error"`
}

func (Backlog) TableName() string {
	return "rollup_backlog"
}
