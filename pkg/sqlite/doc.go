// Package sqlite opens embedded SQLite databases through the pure Go
// modernc.org/sqlite driver and applies goose migrations to them.
//
//	db, err := sqlite.Open(ctx, sqlite.Config{Path: "events.db", BusyTimeout: 5 * time.Second}, log)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	err = sqlite.MigrateFS(ctx, db, migrations, "migrations/sqlite", "featurekit_migrations", log)
//
// Pragmas are passed in the DSN, so every pooled connection gets them.
// A ":memory:" database lives in a single connection and disappears with it.
package sqlite
