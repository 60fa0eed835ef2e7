package eventstore

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/pg"
)

//go:embed migrations/*.sql
var postgresMigrations embed.FS

const insertEvent = "INSERT INTO " + DefaultTable + " (" + eventColumns + ") " +
	"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (uid) DO NOTHING"

// PostgresRepository stores events in the feature_events table. Timestamps
// are kept with microsecond precision.
type PostgresRepository struct {
	pool *pgxpool.Pool
	opts options
}

var _ event.Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(pool *pgxpool.Pool, opts ...Option) *PostgresRepository {
	if pool == nil {
		panic("eventstore: postgres pool cannot be nil")
	}
	o := build(opts)
	o.logger = o.logger.With(logger.Component("eventstore.postgres"))
	return &PostgresRepository{pool: pool, opts: o}
}

// CreateSchema applies the embedded migrations.
func (r *PostgresRepository) CreateSchema(ctx context.Context) error {
	if err := pg.MigrateFS(ctx, r.pool, postgresMigrations, "migrations", r.opts.migrationsTable, r.opts.logger); err != nil {
		return errors.Join(event.ErrRepositoryUnavailable, err)
	}
	return nil
}

func (r *PostgresRepository) Log(ctx context.Context, e event.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, insertEvent, insertArgs(e)...); err != nil {
		return unavailable("postgres", "insert", err)
	}
	return nil
}

// LogBatch inserts every event in one transaction.
func (r *PostgresRepository) LogBatch(ctx context.Context, events []event.Event) error {
	if err := validateAll(events); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, e := range events {
			batch.Queue(insertEvent, insertArgs(e)...)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return unavailable("postgres", "insert batch", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, uid string) (event.Event, error) {
	if uid == "" {
		return event.Event{}, emptyUID()
	}
	rows, err := r.pool.Query(ctx, "SELECT "+eventColumns+" FROM "+DefaultTable+" WHERE uid = $1", uid)
	if err != nil {
		return event.Event{}, unavailable("postgres", "select", err)
	}
	e, err := pgx.CollectExactlyOneRow(rows, scanEvent)
	if pg.IsNotFoundError(err) {
		return event.Event{}, notFound(uid)
	}
	if err != nil {
		return event.Event{}, unavailable("postgres", "select", err)
	}
	return e, nil
}

func (r *PostgresRepository) Search(ctx context.Context, q event.Query) (*event.Series, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	where, args := postgresSQL.where(q)
	rows, err := r.pool.Query(ctx, "SELECT "+eventColumns+" FROM "+DefaultTable+where+" ORDER BY ts, uid", args...)
	if err != nil {
		return nil, unavailable("postgres", "select", err)
	}
	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, unavailable("postgres", "select", err)
	}

	s := event.NewSeries(0)
	for _, e := range events {
		s.Add(e)
	}
	return s, nil
}

func (r *PostgresRepository) Purge(ctx context.Context, q event.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	where, args := postgresSQL.where(q)
	tag, err := r.pool.Exec(ctx, "DELETE FROM "+DefaultTable+where, args...)
	if err != nil {
		return unavailable("postgres", "delete", err)
	}
	r.opts.logger.DebugContext(ctx, "events purged", logger.Count(int(tag.RowsAffected())))
	return r.Log(ctx, event.PurgeEvent(q, r.opts.source))
}

func (r *PostgresRepository) TotalHitCount(ctx context.Context, q event.Query) (int, error) {
	q = event.HitQuery(q)
	if err := q.Validate(); err != nil {
		return 0, err
	}
	where, args := postgresSQL.where(q)
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM "+DefaultTable+where, args...).Scan(&n); err != nil {
		return 0, unavailable("postgres", "count", err)
	}
	return int(n), nil
}

func (r *PostgresRepository) HitCount(ctx context.Context, q event.Query) (map[string]int, error) {
	return r.HitCountBy(ctx, q, event.DimensionTarget)
}

func (r *PostgresRepository) HitCountBy(ctx context.Context, q event.Query, d event.Dimension) (map[string]int, error) {
	col, ok := sqlColumn(d)
	if !ok {
		return nil, invalidDimension(d)
	}
	q = event.HitQuery(q)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	where, args := postgresSQL.where(q)
	rows, err := r.pool.Query(ctx, "SELECT "+col+", count(*) FROM "+DefaultTable+where+" GROUP BY "+col, args...)
	if err != nil {
		return nil, unavailable("postgres", "count", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, unavailable("postgres", "count", err)
		}
		counts[key] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("postgres", "count", err)
	}
	return counts, nil
}

func (r *PostgresRepository) RegisterAuditListener(event.Logger) {}

func (r *PostgresRepository) UnregisterAuditListener() {}

func insertArgs(e event.Event) []any {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return []any{
		e.UID,
		e.Timestamp.UTC(),
		string(e.Source),
		string(e.Scope),
		string(e.Action),
		e.TargetUID,
		e.User,
		e.Host,
		e.Value,
		int64(e.Duration),
		metadata,
	}
}

func scanEvent(row pgx.CollectableRow) (event.Event, error) {
	var (
		e        event.Event
		source   string
		scope    string
		action   string
		duration int64
		metadata map[string]string
	)
	err := row.Scan(&e.UID, &e.Timestamp, &source, &scope, &action,
		&e.TargetUID, &e.User, &e.Host, &e.Value, &duration, &metadata)
	if err != nil {
		return event.Event{}, err
	}
	e.Timestamp = e.Timestamp.UTC()
	e.Source = event.Source(source)
	e.Scope = event.Scope(scope)
	e.Action = event.Action(action)
	e.Duration = time.Duration(duration)
	if len(metadata) > 0 {
		e.Metadata = metadata
	}
	return e, nil
}
