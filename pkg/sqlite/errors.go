package sqlite

import (
	"database/sql"
	"errors"
)

var (
	ErrEmptyPath               = errors.New("empty sqlite database path, use SQLITE_PATH env var")
	ErrFailedToOpenDB          = errors.New("failed to open sqlite database")
	ErrHealthcheckFailed       = errors.New("healthcheck failed, sqlite database is not available")
	ErrFailedToApplyMigrations = errors.New("failed to apply migrations")
)

// IsNotFoundError reports whether err is sql.ErrNoRows.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, sql.ErrNoRows)
}
