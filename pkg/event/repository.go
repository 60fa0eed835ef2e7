package event

import "context"

// Logger records a single event.
type Logger interface {
	Log(ctx context.Context, e Event) error
}

// BatchLogger records many events at once. Implementations write the batch
// atomically where the backend allows it.
type BatchLogger interface {
	Logger
	LogBatch(ctx context.Context, events []Event) error
}

// Repository stores events and answers time-window queries over them.
type Repository interface {
	BatchLogger

	// CreateSchema prepares the backend. It is idempotent.
	CreateSchema(ctx context.Context) error
	// Find returns the event with the given uid or ErrEventNotFound.
	Find(ctx context.Context, uid string) (Event, error)
	// Search returns the matching events ordered by timestamp then uid.
	Search(ctx context.Context, q Query) (*Series, error)
	// Purge removes the matching events and then logs an ActionPurge event
	// for ScopeEventStore carrying the purged window.
	Purge(ctx context.Context, q Query) error
	// TotalHitCount counts ActionHit events matching q.
	TotalHitCount(ctx context.Context, q Query) (int, error)
	// HitCount counts ActionHit events matching q per target uid.
	HitCount(ctx context.Context, q Query) (map[string]int, error)
	// HitCountBy counts ActionHit events matching q per dimension value.
	HitCountBy(ctx context.Context, q Query, d Dimension) (map[string]int, error)

	// RegisterAuditListener and UnregisterAuditListener are no-ops: an event
	// store never audits itself.
	RegisterAuditListener(l Logger)
	UnregisterAuditListener()
}

// PurgeEvent builds the event a repository logs after purging the window of q.
func PurgeEvent(q Query, source Source) Event {
	return New(ActionPurge, ScopeEventStore, "", WithSource(source), WithMetadata(q.Window()))
}

// HitQuery returns q restricted to ActionHit.
func HitQuery(q Query) Query {
	return q.WithAction(ActionHit)
}
