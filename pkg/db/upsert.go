package db

import "gorm.io/gorm"

func dialectName(tx *gorm.DB) string {
	if tx == nil || tx.Dialector == nil {
		return ""
	}
	return tx.Dialector.Name()
}

// InsertIgnore returns the INSERT verb that skips unique-key conflicts on
// the connection's dialect. MySQL spells it INSERT IGNORE; postgres and
// sqlite take a trailing ON CONFLICT clause instead, see ConflictDoNothing.
func InsertIgnore(tx *gorm.DB) string {
	if dialectName(tx) == "mysql" {
		return "INSERT IGNORE"
	}
	return "INSERT"
}

// ConflictDoNothing returns the conflict-suppressing suffix for the given
// unique column, or the empty string where InsertIgnore already covers it.
func ConflictDoNothing(tx *gorm.DB, column string) string {
	if dialectName(tx) == "mysql" {
		return ""
	}
	return " ON CONFLICT (" + column + ") DO NOTHING"
}
