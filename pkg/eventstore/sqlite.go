package eventstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/sqlite"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

var sqliteInsert = "INSERT OR IGNORE INTO " + DefaultTable + " (" + eventColumns + ") VALUES " + sqliteSQL.values()

// SQLiteRepository stores events in an embedded SQLite database. Timestamps
// are kept as Unix nanoseconds, so nothing is lost on a round trip.
type SQLiteRepository struct {
	db   *sql.DB
	opts options
}

var _ event.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB, opts ...Option) *SQLiteRepository {
	if db == nil {
		panic("eventstore: sqlite db cannot be nil")
	}
	o := build(opts)
	o.logger = o.logger.With(logger.Component("eventstore.sqlite"))
	return &SQLiteRepository{db: db, opts: o}
}

// CreateSchema applies the embedded migrations.
func (r *SQLiteRepository) CreateSchema(ctx context.Context) error {
	if err := sqlite.MigrateFS(ctx, r.db, sqliteMigrations, "migrations/sqlite", r.opts.migrationsTable, r.opts.logger); err != nil {
		return errors.Join(event.ErrRepositoryUnavailable, err)
	}
	return nil
}

func (r *SQLiteRepository) Log(ctx context.Context, e event.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	args, err := sqliteArgs(e)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, sqliteInsert, args...); err != nil {
		return unavailable("sqlite", "insert", err)
	}
	return nil
}

// LogBatch inserts every event in one transaction.
func (r *SQLiteRepository) LogBatch(ctx context.Context, events []event.Event) error {
	if err := validateAll(events); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("sqlite", "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return unavailable("sqlite", "prepare", err)
	}
	defer stmt.Close()

	for _, e := range events {
		args, err := sqliteArgs(e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return unavailable("sqlite", "insert batch", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return unavailable("sqlite", "commit", err)
	}
	return nil
}

func (r *SQLiteRepository) Find(ctx context.Context, uid string) (event.Event, error) {
	if uid == "" {
		return event.Event{}, emptyUID()
	}
	row := r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM "+DefaultTable+" WHERE uid = ?", uid)
	e, err := scanSQLiteEvent(row)
	if sqlite.IsNotFoundError(err) {
		return event.Event{}, notFound(uid)
	}
	if err != nil {
		return event.Event{}, unavailable("sqlite", "select", err)
	}
	return e, nil
}

func (r *SQLiteRepository) Search(ctx context.Context, q event.Query) (*event.Series, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	where, args := sqliteSQL.where(q)
	rows, err := r.db.QueryContext(ctx, "SELECT "+eventColumns+" FROM "+DefaultTable+where+" ORDER BY ts, uid", args...)
	if err != nil {
		return nil, unavailable("sqlite", "select", err)
	}
	defer rows.Close()

	s := event.NewSeries(0)
	for rows.Next() {
		e, err := scanSQLiteEvent(rows)
		if err != nil {
			return nil, unavailable("sqlite", "select", err)
		}
		s.Add(e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("sqlite", "select", err)
	}
	return s, nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, q event.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	where, args := sqliteSQL.where(q)
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+DefaultTable+where, args...)
	if err != nil {
		return unavailable("sqlite", "delete", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		r.opts.logger.DebugContext(ctx, "events purged", logger.Count(int(n)))
	}
	return r.Log(ctx, event.PurgeEvent(q, r.opts.source))
}

func (r *SQLiteRepository) TotalHitCount(ctx context.Context, q event.Query) (int, error) {
	q = event.HitQuery(q)
	if err := q.Validate(); err != nil {
		return 0, err
	}
	where, args := sqliteSQL.where(q)
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM "+DefaultTable+where, args...).Scan(&n); err != nil {
		return 0, unavailable("sqlite", "count", err)
	}
	return n, nil
}

func (r *SQLiteRepository) HitCount(ctx context.Context, q event.Query) (map[string]int, error) {
	return r.HitCountBy(ctx, q, event.DimensionTarget)
}

func (r *SQLiteRepository) HitCountBy(ctx context.Context, q event.Query, d event.Dimension) (map[string]int, error) {
	col, ok := sqlColumn(d)
	if !ok {
		return nil, invalidDimension(d)
	}
	q = event.HitQuery(q)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	where, args := sqliteSQL.where(q)
	rows, err := r.db.QueryContext(ctx, "SELECT "+col+", count(*) FROM "+DefaultTable+where+" GROUP BY "+col, args...)
	if err != nil {
		return nil, unavailable("sqlite", "count", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, unavailable("sqlite", "count", err)
		}
		counts[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("sqlite", "count", err)
	}
	return counts, nil
}

func (r *SQLiteRepository) RegisterAuditListener(event.Logger) {}

func (r *SQLiteRepository) UnregisterAuditListener() {}

func sqliteArgs(e event.Event) ([]any, error) {
	metadata := []byte("{}")
	if len(e.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(e.Metadata); err != nil {
			return nil, errors.Join(event.ErrInvalidArgument, err)
		}
	}
	return []any{
		e.UID,
		e.Timestamp.UnixNano(),
		string(e.Source),
		string(e.Scope),
		string(e.Action),
		e.TargetUID,
		e.User,
		e.Host,
		e.Value,
		int64(e.Duration),
		string(metadata),
	}, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEvent(row scanner) (event.Event, error) {
	var (
		e        event.Event
		ts       int64
		source   string
		scope    string
		action   string
		duration int64
		metadata string
	)
	err := row.Scan(&e.UID, &ts, &source, &scope, &action,
		&e.TargetUID, &e.User, &e.Host, &e.Value, &duration, &metadata)
	if err != nil {
		return event.Event{}, err
	}
	e.Timestamp = time.Unix(0, ts).UTC()
	e.Source = event.Source(source)
	e.Scope = event.Scope(scope)
	e.Action = event.Action(action)
	e.Duration = time.Duration(duration)
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
			return event.Event{}, err
		}
	}
	return e, nil
}
