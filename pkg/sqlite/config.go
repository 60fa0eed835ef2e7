package sqlite

import "time"

type Config struct {
	Path         string        `env:"SQLITE_PATH" envDefault:"featurekit.db"` // Path is the database file, ":memory:" for a private in-memory database.
	BusyTimeout  time.Duration `env:"SQLITE_BUSY_TIMEOUT" envDefault:"5s"`    // BusyTimeout is how long a statement waits on a locked database.
	MaxOpenConns int           `env:"SQLITE_MAX_OPEN_CONNS" envDefault:"4"`   // MaxOpenConns caps the pool. In-memory databases always use one connection.
	JournalMode  string        `env:"SQLITE_JOURNAL_MODE" envDefault:"WAL"`   // JournalMode is applied with PRAGMA journal_mode.
	Synchronous  string        `env:"SQLITE_SYNCHRONOUS" envDefault:"NORMAL"` // Synchronous is applied with PRAGMA synchronous.

	MigrationsTable string `env:"SQLITE_MIGRATIONS_TABLE" envDefault:"featurekit_migrations"` // MigrationsTable stores the applied migration versions.
}
