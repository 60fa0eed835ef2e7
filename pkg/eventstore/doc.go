// Package eventstore provides persistent event.Repository implementations
// for PostgreSQL, SQLite, MongoDB and OpenSearch.
//
// All of them honour the event.Repository contract: searches are ordered by
// timestamp then uid over a half-open window, a purge logs an ActionPurge
// event, and transport failures are reported as event.ErrRepositoryUnavailable.
// CreateSchema is idempotent: the SQL stores run embedded goose migrations, Mongo
// creates indexes and OpenSearch creates the index with its mapping.
//
//	pool, err := pg.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	events := eventstore.NewPostgresRepository(pool, eventstore.WithSource(event.SourceAPI))
//	if err := events.CreateSchema(ctx); err != nil {
//		return err
//	}
//
// Stored timestamps lose precision below the backend resolution: microseconds
// in Postgres and milliseconds in Mongo. SQLite keeps Unix nanoseconds.
package eventstore
