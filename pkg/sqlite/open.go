package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Open opens the database at cfg.Path with the configured pragmas and pings it.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*sql.DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, ErrEmptyPath
	}
	if log == nil {
		log = slog.Default()
	}

	db, err := sql.Open("sqlite", DSN(cfg))
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDB, err)
	}
	switch {
	case path == MemoryPath:
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrFailedToOpenDB, err)
	}
	log.DebugContext(ctx, "sqlite database opened", logger.Component("sqlite"), slog.String("path", path))
	return db, nil
}

// DSN renders cfg as a modernc.org/sqlite data source name.
func DSN(cfg Config) string {
	q := url.Values{}
	if cfg.BusyTimeout > 0 {
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	}
	if cfg.JournalMode != "" && cfg.Path != MemoryPath {
		q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", cfg.JournalMode))
	}
	if cfg.Synchronous != "" {
		q.Add("_pragma", fmt.Sprintf("synchronous(%s)", cfg.Synchronous))
	}
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + strings.TrimSpace(cfg.Path) + "?" + q.Encode()
}
