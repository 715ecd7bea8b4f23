package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsRetryableErr reports whether the statement failed on transient lock
// contention and may be retried against the same record.
func IsRetryableErr(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	// SQLite (SQLITE_BUSY / SQLITE_LOCKED)
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return true
	}

	// PostgreSQL (error codes 40001 / 40P01)
	if strings.Contains(msg, "could not serialize access") || strings.Contains(msg, "deadlock detected") {
		return true
	}

	// MySQL (error codes 1205 / 1213)
	if strings.Contains(msg, "Lock wait timeout exceeded") || strings.Contains(msg, "Deadlock found") {
		return true
	}

	return false
}

// IsRetryableInTx reports whether a statement may be reissued inside the
// transaction it failed in. Only sqlite allows that: its busy errors leave
// the transaction usable, while postgres aborts the whole transaction on
// serialization failures and mysql rolls back on lock waits, so those must
// be retried at the transaction boundary instead.
func IsRetryableInTx(tx *gorm.DB, err error) bool {
	return dialectName(tx) == "sqlite" && IsRetryableErr(err)
}
