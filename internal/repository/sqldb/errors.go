package sqldb

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// constraintKind classifies the integrity violations we translate.
type constraintKind int

const (
	noViolation constraintKind = iota
	uniqueViolation
	foreignKeyViolation
)

// PostgreSQL SQLSTATE codes.
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classify inspects a driver error and reports which constraint failed
// and, for unique violations, on which column.
//
// Each driver has its own error type, so we ask both. errors.As walks the
// wrap chain, which means this keeps working if a caller wrapped err first.
//
//	SQLite:     *sqlite.Error, Code() == SQLITE_CONSTRAINT_UNIQUE,
//	            message "UNIQUE constraint failed: users.email"
//	PostgreSQL: *pgconn.PgError, Code == "23505",
//	            ConstraintName "users_email_key"
func classify(err error) (constraintKind, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return uniqueViolation, columnFromText(pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return foreignKeyViolation, ""
		}
		return noViolation, ""
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// The message check covers builds that report the primary
		// SQLITE_CONSTRAINT code instead of the extended one.
		msg := liteErr.Error()
		switch {
		case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			strings.Contains(msg, "UNIQUE constraint failed"):
			return uniqueViolation, columnFromText(msg)
		case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
			strings.Contains(msg, "FOREIGN KEY constraint failed"):
			return foreignKeyViolation, ""
		}
	}

	return noViolation, ""
}

// columnFromText finds which unique column a constraint name or message
// refers to. Only the users table has more than one unique column.
func columnFromText(text string) string {
	switch {
	case strings.Contains(text, "external_id"):
		return "external_id"
	case strings.Contains(text, "email"):
		return "email"
	default:
		return "id"
	}
}
