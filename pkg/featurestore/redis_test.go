package featurestore_test

import (
	"context"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/featurestore"
	"github.com/dmitrymomot/featurekit/pkg/redis"
)

// newRedisRepository talks to REDIS_URL when it is set and to an in-process
// miniredis otherwise.
func newRedisRepository(t *testing.T) *featurestore.RedisRepository {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://" + miniredis.RunT(t).Addr()
	}
	client, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  url,
		RetryAttempts:  1,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	repo := featurestore.NewRedisRepository(client, featurestore.WithKeyPrefix("test-"+uuid.NewString()))
	t.Cleanup(func() {
		_ = repo.DeleteAll(context.Background())
		_ = client.Close()
	})
	return repo
}

func TestRedisRepository_CRUD(t *testing.T) {
	t.Parallel()
	repo := newRedisRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateSchema(ctx))

	rollout, err := feature.NewPercentage(40)
	require.NoError(t, err)
	f, err := feature.New("new-ui",
		feature.WithEnabled(true),
		feature.WithGroup("ui"),
		feature.WithStrategies(rollout),
	)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, f))

	ok, err := repo.Exists(ctx, "new-ui")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Find(ctx, "new-ui")
	require.NoError(t, err)
	assert.True(t, got.IsEnabled())
	assert.Equal(t, "ui", got.Group())
	require.Len(t, got.Strategies(), 1)
	assert.Equal(t, feature.StrategyPercentage, got.Strategies()[0].Type())

	_, err = repo.Find(ctx, "missing")
	assert.ErrorIs(t, err, feature.ErrFeatureNotFound)

	require.NoError(t, repo.Delete(ctx, "new-ui"))
	assert.ErrorIs(t, repo.Delete(ctx, "new-ui"), feature.ErrFeatureNotFound)

	ok, err = repo.ExistGroup(ctx, "ui")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisRepository_Groups(t *testing.T) {
	t.Parallel()
	repo := newRedisRepository(t)
	ctx := context.Background()

	for _, uid := range []string{"b", "a", "c"} {
		f, err := feature.New(uid, feature.WithGroup("g1"))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, f))
	}

	members, err := repo.ReadGroup(ctx, "g1")
	require.NoError(t, err)
	uids := make([]string, 0, len(members))
	for _, m := range members {
		uids = append(uids, m.UID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, uids)

	moved, err := repo.Find(ctx, "a")
	require.NoError(t, err)
	moved.SetGroup("g2")
	require.NoError(t, repo.Save(ctx, moved))

	names, err := repo.ListGroupNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, names)

	for _, uid := range []string{"b", "c"} {
		require.NoError(t, repo.Delete(ctx, uid))
	}
	names, err = repo.ListGroupNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g2"}, names)

	_, err = repo.ReadGroup(ctx, "g1")
	assert.ErrorIs(t, err, feature.ErrGroupNotFound)

	ids, err := repo.FindAllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, slices.Collect(ids))
}

func TestRedisRepository_AuditListener(t *testing.T) {
	t.Parallel()
	repo := newRedisRepository(t)
	ctx := context.Background()

	events := event.NewMemoryRepository()
	repo.RegisterAuditListener(events, event.WithAuditSource(event.SourceAPI))

	f, err := feature.New("audited")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, f))
	require.NoError(t, repo.Delete(ctx, "audited"))

	series, err := events.Search(ctx, event.Query{})
	require.NoError(t, err)
	actions := make([]event.Action, 0, series.Len())
	for e := range series.All() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []event.Action{event.ActionUpdate, event.ActionDelete}, actions)
}

// newMiniredisRepository returns a repository with the "kit" prefix and the
// server behind it, for tests that inspect raw keys.
func newMiniredisRepository(t *testing.T) (*featurestore.RedisRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "redis://" + mr.Addr(),
		RetryAttempts:  1,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return featurestore.NewRedisRepository(client, featurestore.WithKeyPrefix("kit")), mr
}

func TestRedisRepository_PrunesStaleGroups(t *testing.T) {
	t.Parallel()
	repo, mr := newMiniredisRepository(t)
	ctx := context.Background()

	f, err := feature.New("f1", feature.WithGroup("live"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, f))
	_, err = mr.SAdd("kit:groups", "ghost")
	require.NoError(t, err)

	names, err := repo.ListGroupNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, names)

	indexed, err := mr.Members("kit:groups")
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, indexed)

	require.NoError(t, repo.DeleteAll(ctx))
	assert.Empty(t, mr.Keys())

	names, err = repo.ListGroupNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRedisRepository_ConcurrentIndex(t *testing.T) {
	t.Parallel()
	repo, mr := newMiniredisRepository(t)
	ctx := context.Background()

	const writers, rounds = 6, 20
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uid := "f" + strconv.Itoa(i)
			for round := range rounds {
				f, err := feature.New(uid, feature.WithGroup("g"+strconv.Itoa((i+round)%3)))
				if !assert.NoError(t, err) {
					return
				}
				assert.NoError(t, repo.Save(ctx, f))
			}
		}()
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range rounds * 2 {
			_, err := repo.ListGroupNames(ctx)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for range 3 {
			assert.NoError(t, repo.DeleteAll(ctx))
			time.Sleep(time.Millisecond)
		}
	}()
	wg.Wait()

	ids, err := repo.FindAllIDs(ctx)
	require.NoError(t, err)
	indexed := slices.Collect(ids)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	var groups []string
	for f := range all {
		if !slices.Contains(groups, f.Group()) {
			groups = append(groups, f.Group())
		}
	}
	slices.Sort(groups)

	names, err := repo.ListGroupNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, groups, names, "group names match the groups of stored features")

	for _, key := range mr.Keys() {
		if uid, ok := strings.CutPrefix(key, "kit:feature:"); ok {
			assert.Contains(t, indexed, uid, "every stored document is indexed")
		}
		if name, ok := strings.CutPrefix(key, "kit:group:"); ok {
			member, err := mr.IsMember("kit:groups", name)
			require.NoError(t, err)
			assert.True(t, member, "group %q is listed", name)
		}
	}
}
