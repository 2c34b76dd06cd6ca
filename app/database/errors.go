package database

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	default:
		return isConstraint(sqliteErr) && strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	}
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	// ON DELETE RESTRICT is reported as SQLITE_CONSTRAINT_TRIGGER, not
	// SQLITE_CONSTRAINT_FOREIGNKEY.
	if sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return isConstraint(sqliteErr) && strings.Contains(sqliteErr.Error(), "FOREIGN KEY constraint failed")
}

// isConstraint reports whether the primary result code is SQLITE_CONSTRAINT,
// whatever the extended code.
func isConstraint(err *sqlite.Error) bool {
	return err.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
