package db

import "gorm.io/gorm"

// ForUpdate returns the row-locking suffix for the connection's dialect.
// SQLite serializes writers at the database level and has no FOR UPDATE
// syntax, so the suffix is empty there.
func ForUpdate(tx *gorm.DB) string {
	if dialectName(tx) == "" || dialectName(tx) == "sqlite" {
		return ""
	}
	return " FOR UPDATE"
}
