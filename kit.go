package featurekit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/featurekit/pkg/config"
	"github.com/dmitrymomot/featurekit/pkg/environment"
	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/eventstore"
	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/featurestore"
	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/mongo"
	"github.com/dmitrymomot/featurekit/pkg/opensearch"
	"github.com/dmitrymomot/featurekit/pkg/pg"
	"github.com/dmitrymomot/featurekit/pkg/property"
	"github.com/dmitrymomot/featurekit/pkg/redis"
	"github.com/dmitrymomot/featurekit/pkg/sqlite"
	"github.com/dmitrymomot/featurekit/pkg/telemetry"
)

// Kit bundles a feature store, a property store, an event store, the audit
// wiring between them and a Manager on top.
type Kit struct {
	Logger     *slog.Logger
	Features   feature.Repository
	Properties *property.MemoryStore
	Events     event.Repository
	Manager    *feature.Manager

	env     string
	closers []func(context.Context) error
	probes  []probe
}

type probe struct {
	name  string
	check func(context.Context) error
}

// Option customizes New.
type Option func(*Kit)

// WithLogger replaces the logger built from Config.
func WithLogger(l *slog.Logger) Option {
	return func(k *Kit) {
		if l != nil {
			k.Logger = l
		}
	}
}

// New builds a Kit from cfg. Remote backends are connected and their schema
// created; the features file, when set, is loaded into the feature store.
// On failure everything opened so far is closed again.
func New(ctx context.Context, cfg Config, opts ...Option) (*Kit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	k := &Kit{env: cfg.Env}
	for _, opt := range opts {
		opt(k)
	}
	if k.Logger == nil {
		k.Logger = logger.New(
			logger.WithEnvironment(cfg.Env, cfg.Service),
			logger.WithContextExtractors(environment.LoggerExtractor(), telemetry.LoggerExtractor()),
		)
	}
	property.SetListDelimiter(cfg.ListDelimiter)

	if err := k.build(ctx, cfg); err != nil {
		if cerr := k.Close(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}
	return k, nil
}

func (k *Kit) build(ctx context.Context, cfg Config) error {
	var otelCfg telemetry.Config
	if err := config.Load(&otelCfg); err != nil {
		return errors.Join(ErrBackend, err)
	}
	tp, err := telemetry.Setup(ctx, otelCfg, cfg.Service)
	if err != nil {
		return errors.Join(ErrBackend, err)
	}
	k.onClose(tp.Shutdown)

	events, err := k.openEvents(ctx, cfg)
	if err != nil {
		return err
	}
	k.Events = events

	var sink event.Logger = events
	if cfg.AuditBuffer > 0 {
		w, closeWriter := event.NewAsyncWriter(events, event.AsyncOptions{
			BufferSize:   cfg.AuditBuffer,
			BatchSize:    cfg.AuditBatchSize,
			BatchTimeout: cfg.AuditBatchTimeout,
			Logger:       k.Logger,
		})
		k.closers = append(k.closers, closeWriter)
		sink = w
	}

	features, err := k.openFeatures(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.FeaturesFile != "" && cfg.FeatureStore == FeatureStoreRedis {
		if err := seed(ctx, features, cfg.FeaturesFile); err != nil {
			return err
		}
	}
	features.RegisterAuditListener(sink, event.WithAuditSource(event.SourceAPI))
	k.Features = features

	k.Properties = property.NewMemoryStore(property.WithStoreLogger(k.Logger))
	k.Properties.RegisterAuditListener(sink, event.WithAuditSource(event.SourceAPI))

	managerOpts := []feature.ManagerOption{
		feature.WithUsageLogger(sink),
		feature.WithManagerLogger(k.Logger),
		feature.WithTracerProvider(tp),
	}
	if cfg.AutoCreate {
		managerOpts = append(managerOpts, feature.WithAutoCreate())
	}
	k.Manager = feature.NewManager(features, managerOpts...)

	k.Logger.InfoContext(ctx, "featurekit ready",
		slog.String("feature_store", cfg.FeatureStore),
		slog.String("event_store", cfg.EventStore),
	)
	return nil
}

func (k *Kit) openEvents(ctx context.Context, cfg Config) (event.Repository, error) {
	opts := []eventstore.Option{eventstore.WithSource(event.SourceAPI), eventstore.WithLogger(k.Logger)}

	var repo event.Repository
	switch cfg.EventStore {
	case EventStorePostgres:
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, errors.Join(ErrBackend, err)
		}
		pool, err := pg.Connect(ctx, pgCfg, k.Logger)
		if err != nil {
			return nil, errors.Join(ErrBackend, err)
		}
		k.onClose(func(context.Context) error {
			pool.Close()
			return nil
		})
		k.addProbe("postgres", pg.Healthcheck(pool))
		repo = eventstore.NewPostgresRepository(pool, append(opts, eventstore.WithMigrationsTable(pgCfg.MigrationsTable))...)

	case EventStoreSQLite:
		var sqliteCfg sqlite.Config
		if err := config.Load(&sqliteCfg); err != nil {
			return nil, errors.Join(ErrBackend, err)
		}
		db, err := sqlite.Open(ctx, sqliteCfg, k.Logger)
		if err != nil {
			return nil, errors.Join(ErrBackend, err)
		}
		k.onClose(func(context.Context) error {
			return db.Close()
		})
		k.addProbe("sqlite", sqlite.Healthcheck(db))
		repo = eventstore.NewSQLiteRepository(db, append(opts, eventstore.WithMigrationsTable(sqliteCfg.MigrationsTable))...)

	case EventStoreMongo:
		var mongoCfg mongo.Config
		if err := config.Load(&mongoCfg); err != nil {
			return nil, errors.Join(ErrBackend, err)
		}
		db, err := mongo.NewWithDatabase(ctx, mongoCfg, k.Logger)
		if err != nil {
			return nil, errors.Join(ErrBackend, err)
		}
		k.onClose(db.Client().Disconnect)
		k.addProbe("mongo", mongo.Healthcheck(db.Client()))
		repo = eventstore.NewMongoRepository(db, opts...)

	case EventStoreOpenSearch:
		var osCfg opensearch.Config
		if err := config.Load(&osCfg); err != nil {
			return nil, errors.Join(ErrBackend, err)
		}
		client, err := opensearch.New(ctx, osCfg)
		if err != nil {
			return nil, errors.Join(ErrBackend, err)
		}
		k.addProbe("opensearch", opensearch.Healthcheck(client))
		repo = eventstore.NewOpenSearchRepository(client, append(opts, eventstore.WithIndex(osCfg.Index))...)

	default:
		return event.NewMemoryRepository(
			event.WithCapacity(cfg.EventCapacity),
			event.WithRepositorySource(event.SourceAPI),
			event.WithLogger(k.Logger),
		), nil
	}

	if err := repo.CreateSchema(ctx); err != nil {
		return nil, errors.Join(ErrBackend, err)
	}
	return repo, nil
}

func (k *Kit) openFeatures(ctx context.Context, cfg Config) (feature.Repository, error) {
	if cfg.FeatureStore != FeatureStoreRedis {
		opts := []feature.MemoryOption{feature.WithLogger(k.Logger)}
		if cfg.FeaturesFile != "" {
			return feature.NewMemoryRepositoryFromFile(ctx, nil, cfg.FeaturesFile, opts...)
		}
		return feature.NewMemoryRepository(opts...), nil
	}

	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return nil, errors.Join(ErrBackend, err)
	}
	client, err := redis.Connect(ctx, redisCfg, redis.WithLogger(k.Logger))
	if err != nil {
		return nil, errors.Join(ErrBackend, err)
	}
	k.onClose(func(context.Context) error {
		return client.Close()
	})
	k.addProbe("redis", redis.Healthcheck(client))

	var repo feature.Repository = featurestore.NewRedisRepository(client,
		featurestore.WithKeyPrefix(redisCfg.KeyPrefix),
		featurestore.WithLogger(k.Logger),
	)
	if err := repo.CreateSchema(ctx); err != nil {
		return nil, errors.Join(ErrBackend, err)
	}
	if cfg.CacheSize > 0 {
		repo = feature.NewCachedRepository(repo, cfg.CacheSize)
	}
	return repo, nil
}

// seed saves every feature of the file into repo, replacing stored versions.
func seed(ctx context.Context, repo feature.Repository, path string) error {
	parser, err := feature.NewParserForFile(path)
	if err != nil {
		return err
	}
	src, err := feature.NewMemoryRepositoryFromFile(ctx, parser, path)
	if err != nil {
		return err
	}
	all, err := src.FindAll(ctx)
	if err != nil {
		return err
	}
	for f := range all {
		if err := repo.Save(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// Context returns ctx tagged with the configured environment, for environment
// strategies and log records.
func (k *Kit) Context(ctx context.Context) context.Context {
	if k.env == "" {
		return ctx
	}
	return environment.WithContext(ctx, k.env)
}

// Check is a shorthand for Manager.Check within the configured environment.
func (k *Kit) Check(ctx context.Context, uid string, tc feature.ToggleContext) (bool, error) {
	return k.Manager.Check(k.Context(ctx), uid, tc)
}

// Close flushes pending audit events and releases backend connections in
// reverse order of creation. It is safe to call more than once.
func (k *Kit) Close(ctx context.Context) error {
	var errs []error
	for i := len(k.closers) - 1; i >= 0; i-- {
		if err := k.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	k.closers = nil
	return errors.Join(errs...)
}

// Healthcheck probes every remote backend the Kit opened. A Kit on memory
// stores has nothing to probe and is always healthy.
func (k *Kit) Healthcheck(ctx context.Context) error {
	var errs []error
	for _, p := range k.probes {
		if err := p.check(ctx); err != nil {
			errs = append(errs, errors.Join(ErrBackend, fmt.Errorf("%s healthcheck", p.name), err))
		}
	}
	return errors.Join(errs...)
}

func (k *Kit) addProbe(name string, check func(context.Context) error) {
	k.probes = append(k.probes, probe{name: name, check: check})
}

func (k *Kit) onClose(fn func(context.Context) error) {
	k.closers = append(k.closers, fn)
}
