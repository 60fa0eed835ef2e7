package eventstore

import (
	"log/slog"

	"github.com/dmitrymomot/featurekit/pkg/event"
)

const (
	// DefaultTable is the SQL table and Mongo collection holding events.
	DefaultTable = "feature_events"
	// DefaultIndex is the OpenSearch index holding events.
	DefaultIndex = "feature-events"
	// DefaultMigrationsTable records the applied schema versions of the SQL stores.
	DefaultMigrationsTable = "featurekit_migrations"
)

type options struct {
	source          event.Source
	logger          *slog.Logger
	collection      string
	index           string
	migrationsTable string
	pageSize        int
}

func defaultOptions() options {
	return options{
		source:          event.SourceUnknown,
		logger:          slog.Default(),
		collection:      DefaultTable,
		index:           DefaultIndex,
		migrationsTable: DefaultMigrationsTable,
		pageSize:        1000,
	}
}

// Option configures an event repository.
type Option func(*options)

// WithSource sets the source stamped on the purge events a repository logs.
func WithSource(s event.Source) Option {
	return func(o *options) {
		if s != "" {
			o.source = s
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCollection names the Mongo collection. The SQL stores always use DefaultTable.
func WithCollection(name string) Option {
	return func(o *options) {
		if name != "" {
			o.collection = name
		}
	}
}

// WithIndex names the OpenSearch index.
func WithIndex(name string) Option {
	return func(o *options) {
		if name != "" {
			o.index = name
		}
	}
}

// WithMigrationsTable names the goose version table of the SQL stores.
func WithMigrationsTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.migrationsTable = name
		}
	}
}

// WithPageSize sets how many OpenSearch hits are fetched per request.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

func build(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
