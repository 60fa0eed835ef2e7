// Package pg bootstraps PostgreSQL access on pgx/v5: an env-configured
// connection pool with logged retries, goose migrations from disk or an
// embedded filesystem, a health probe and error classifiers.
//
//	var cfg pg.Config
//	if err := env.Parse(&cfg); err != nil {
//		return err
//	}
//	pool, err := pg.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	err = pg.MigrateFS(ctx, pool, migrations, "migrations", cfg.MigrationsTable, log)
//
// Goose keeps its configuration in globals, so concurrent MigrateFS calls are
// serialized.
package pg
