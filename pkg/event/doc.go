// Package event records what happens to features and their stores.
//
// An Event is an immutable value: a uid, a timestamp, the source that caused
// it, the scope and uid of the target, and the action taken. Repository
// implementations store events and answer time-window queries over them:
//
//	repo := event.NewMemoryRepository(event.WithCapacity(10_000))
//	_ = repo.Log(ctx, event.New(event.ActionHit, event.ScopeFeature, "dark-mode"))
//	hits, _ := repo.HitCount(ctx, event.Last(time.Hour))
//
// Query windows are half-open, [From, To), and a zero bound is unbounded.
//
// AuditListener converts the notifications of a feature store into events, and
// AsyncWriter moves writes to a slow backend off the caller's path:
//
//	writer, closeWriter := event.NewAsyncWriter(store, event.AsyncOptions{BatchSize: 50})
//	defer closeWriter(ctx)
//	features.RegisterAuditListener(writer)
package event
