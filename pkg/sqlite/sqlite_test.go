package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/sqlite"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	dsn := sqlite.DSN(sqlite.Config{
		Path:        "events.db",
		BusyTimeout: 2 * time.Second,
		JournalMode: "WAL",
		Synchronous: "NORMAL",
	})
	assert.Equal(t,
		"file:events.db?_pragma=busy_timeout%282000%29&_pragma=journal_mode%28WAL%29&_pragma=synchronous%28NORMAL%29&_pragma=foreign_keys%281%29",
		dsn)

	dsn = sqlite.DSN(sqlite.Config{Path: sqlite.MemoryPath, JournalMode: "WAL"})
	assert.NotContains(t, dsn, "journal_mode")
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		_, err := sqlite.Open(ctx, sqlite.Config{Path: " "}, logger.Discard())
		require.ErrorIs(t, err, sqlite.ErrEmptyPath)
	})

	t.Run("file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "events.db")
		db, err := sqlite.Open(ctx, sqlite.Config{Path: path, BusyTimeout: time.Second, JournalMode: "WAL"}, logger.Discard())
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		require.NoError(t, sqlite.Healthcheck(db)(ctx))

		var mode string
		require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode)
	})
}

func TestMigrateFS(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.Config{Path: sqlite.MemoryPath}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fsys := fstest.MapFS{
		"migrations/00001_create_flags.sql": {Data: []byte(
			"-- +goose Up\nCREATE TABLE flags (uid TEXT PRIMARY KEY);\n\n-- +goose Down\nDROP TABLE flags;\n")},
		"migrations/00002_add_flag.sql": {Data: []byte(
			"-- +goose Up\nINSERT INTO flags (uid) VALUES ('dark-mode');\n\n-- +goose Down\nDELETE FROM flags;\n")},
	}

	require.NoError(t, sqlite.MigrateFS(ctx, db, fsys, "migrations", "test_migrations", logger.Discard()))
	require.NoError(t, sqlite.MigrateFS(ctx, db, fsys, "migrations", "test_migrations", logger.Discard()), "applied migrations are skipped")

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT count(*) FROM flags").Scan(&n))
	assert.Equal(t, 1, n)

	require.NoError(t, db.QueryRowContext(ctx, "SELECT max(version_id) FROM test_migrations").Scan(&n))
	assert.Equal(t, 2, n)

	err = sqlite.MigrateFS(ctx, db, fstest.MapFS{
		"broken/00001_bad.sql": {Data: []byte("-- +goose Up\nCREATE TABLE;\n")},
	}, "broken", "broken_migrations", logger.Discard())
	require.ErrorIs(t, err, sqlite.ErrFailedToApplyMigrations)
}
