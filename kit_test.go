package featurekit_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit"
	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/property"
)

func newKit(t *testing.T, cfg featurekit.Config) *featurekit.Kit {
	t.Helper()
	kit, err := featurekit.New(context.Background(), cfg, featurekit.WithLogger(logger.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kit.Close(context.Background()) })
	return kit
}

func TestNew_MemoryDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	kit := newKit(t, featurekit.Config{
		Env:          "staging",
		FeaturesFile: "testdata/features.yaml",
	})

	ids, err := kit.Features.ListGroupNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ui"}, ids)

	on, err := kit.Check(ctx, "new-ui", feature.NewToggleContext("alice", nil))
	require.NoError(t, err)
	assert.True(t, on)

	on, err = kit.Manager.Check(ctx, "new-ui", feature.NewToggleContext("alice", nil))
	require.NoError(t, err)
	assert.False(t, on, "no environment in a bare context")

	require.NoError(t, kit.Manager.Enable(ctx, "dark-mode"))

	hits, err := kit.Events.HitCount(ctx, event.Query{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"new-ui": 1}, hits)

	updates, err := kit.Events.Search(ctx, event.Query{Action: event.ActionUpdate, TargetUID: "dark-mode"})
	require.NoError(t, err)
	assert.Equal(t, 1, updates.Len(), "saves are audited")

	limit, err := property.NewInt("rate-limit", 100)
	require.NoError(t, err)
	require.NoError(t, kit.Properties.Save(ctx, limit))
	props, err := kit.Events.Search(ctx, event.Query{Scope: event.ScopeProperty, TargetUID: "rate-limit"})
	require.NoError(t, err)
	assert.Equal(t, 1, props.Len(), "property saves are audited")
}

func TestNew_AsyncAudit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	kit, err := featurekit.New(ctx, featurekit.Config{
		AuditBuffer:       16,
		AuditBatchSize:    4,
		AuditBatchTimeout: 10 * time.Millisecond,
		AutoCreate:        true,
	}, featurekit.WithLogger(logger.Discard()))
	require.NoError(t, err)

	on, err := kit.Manager.Check(ctx, "created-on-demand", feature.NewToggleContext("", nil))
	require.NoError(t, err)
	assert.False(t, on)

	ok, err := kit.Features.Exists(ctx, "created-on-demand")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, kit.Close(ctx))
	require.NoError(t, kit.Close(ctx))

	s, err := kit.Events.Search(ctx, event.Query{TargetUID: "created-on-demand"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len(), "close flushes queued audit events")
}

func TestNew_SQLiteEvents(t *testing.T) {
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "events.db"))
	ctx := context.Background()

	kit := newKit(t, featurekit.Config{
		EventStore:   featurekit.EventStoreSQLite,
		FeaturesFile: "testdata/features.yaml",
	})

	require.NoError(t, kit.Manager.Disable(ctx, "dark-mode"))
	on, err := kit.Manager.Check(ctx, "dark-mode", feature.NewToggleContext("alice", nil))
	require.NoError(t, err)
	assert.False(t, on)

	toggles, err := kit.Events.Search(ctx, event.Query{Action: event.ActionToggleOff})
	require.NoError(t, err)
	assert.Equal(t, 1, toggles.Len())

	require.NoError(t, kit.Healthcheck(ctx))
	require.NoError(t, kit.Close(ctx))
	require.ErrorIs(t, kit.Healthcheck(ctx), featurekit.ErrBackend)
}

func TestNew_RedisFeatures(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://"+miniredis.RunT(t).Addr())
	ctx := context.Background()

	kit := newKit(t, featurekit.Config{
		Env:          "staging",
		FeatureStore: featurekit.FeatureStoreRedis,
		CacheSize:    16,
		FeaturesFile: "testdata/features.yaml",
	})
	_, cached := kit.Features.(*feature.CachedRepository)
	assert.True(t, cached)

	names, err := kit.Features.ListGroupNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ui"}, names)

	on, err := kit.Check(ctx, "new-ui", feature.NewToggleContext("alice", nil))
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, kit.Manager.EnableGroup(ctx, "ui"))
	f, err := kit.Features.Find(ctx, "dark-mode")
	require.NoError(t, err)
	assert.True(t, f.IsEnabled())

	require.NoError(t, kit.Healthcheck(ctx))
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := featurekit.New(ctx, featurekit.Config{FeatureStore: "etcd"})
	assert.ErrorIs(t, err, featurekit.ErrInvalidConfig)

	_, err = featurekit.New(ctx, featurekit.Config{EventStore: "kafka"})
	assert.ErrorIs(t, err, featurekit.ErrInvalidConfig)

	_, err = featurekit.New(ctx, featurekit.Config{AuditBuffer: -1})
	assert.ErrorIs(t, err, featurekit.ErrInvalidConfig)

	_, err = featurekit.New(ctx, featurekit.Config{FeaturesFile: "testdata/missing.yaml"},
		featurekit.WithLogger(logger.Discard()))
	assert.ErrorIs(t, err, feature.ErrConfiguration)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("FEATUREKIT_EVENT_STORE", "memory")
	t.Setenv("FEATUREKIT_AUDIT_BUFFER", "32")

	cfg, err := featurekit.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, featurekit.FeatureStoreMemory, cfg.FeatureStore)
	assert.Equal(t, ",", cfg.ListDelimiter)
	assert.Equal(t, 32, cfg.AuditBuffer)
	assert.Equal(t, 100*time.Millisecond, cfg.AuditBatchTimeout)
}
