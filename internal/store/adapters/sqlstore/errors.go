package sqlstore

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jcmexdev/storefront/internal/store/domain"
)

const mysqlDuplicateEntry = 1062

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint
// failure from either driver.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(sqliteErr.Error(), "UNIQUE")
		}
		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return false
}

// conflictOr maps unique violations to a domain conflict and returns any
// other error unchanged.
func conflictOr(err error, resource, key string) error {
	if isUniqueViolation(err) {
		return &domain.ConflictError{Resource: resource, Key: key}
	}
	return err
}

// notFoundOr maps sql.ErrNoRows to a domain not-found error.
func notFoundOr(err error, resource, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Resource: resource, Key: key}
	}
	return err
}

func requireAffected(res sql.Result, resource, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.NotFoundError{Resource: resource, Key: key}
	}
	return nil
}
