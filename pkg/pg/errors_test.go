package pg_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/pg"
)

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	assert.True(t, pg.IsNotFoundError(pgx.ErrNoRows))
	assert.False(t, pg.IsNotFoundError(nil))

	dup := &pgconn.PgError{Code: "23505"}
	assert.True(t, pg.IsDuplicateKeyError(dup))
	assert.False(t, pg.IsConnectionError(dup))

	assert.True(t, pg.IsConnectionError(&pgconn.PgError{Code: "08006"}))
	assert.True(t, pg.IsConnectionError(errors.New("dial tcp: connection refused")))
	assert.False(t, pg.IsConnectionError(pgx.ErrNoRows))
	assert.False(t, pg.IsConnectionError(nil))
}

func TestConnect_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := pg.Connect(ctx, pg.Config{}, nil)
	require.ErrorIs(t, err, pg.ErrEmptyConnectionString)

	_, err = pg.Connect(ctx, pg.Config{ConnectionString: "postgres://%zz"}, nil)
	require.ErrorIs(t, err, pg.ErrFailedToParseDBConfig)
}

func TestMigrate_MissingDir(t *testing.T) {
	t.Parallel()

	err := pg.Migrate(context.Background(), nil, "testdata/does-not-exist", "", nil)
	assert.ErrorIs(t, err, pg.ErrMigrationsDirNotFound)
}

func TestConnect_Server(t *testing.T) {
	url := os.Getenv("PG_CONN_URL")
	if url == "" {
		t.Skip("PG_CONN_URL is not set")
	}

	ctx := context.Background()
	pool, err := pg.Connect(ctx, pg.Config{ConnectionString: url, RetryAttempts: 1, RetryInterval: time.Second}, nil)
	require.NoError(t, err)
	defer pool.Close()

	assert.NoError(t, pg.Healthcheck(pool)(ctx))
}
