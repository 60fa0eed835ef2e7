package feature_test

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

func mustFeature(t testing.TB, uid string, opts ...feature.Option) *feature.Feature {
	t.Helper()
	f, err := feature.New(uid, opts...)
	require.NoError(t, err)
	return f
}

func TestMemoryRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("save find exists", func(t *testing.T) {
		t.Parallel()
		repo := feature.NewMemoryRepository()
		require.NoError(t, repo.CreateSchema(ctx))

		ok, err := repo.Exists(ctx, "f1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, repo.Save(ctx, mustFeature(t, "f1", feature.WithEnabled(true))))
		ok, err = repo.Exists(ctx, "f1")
		require.NoError(t, err)
		assert.True(t, ok)

		f, err := repo.Find(ctx, "f1")
		require.NoError(t, err)
		assert.True(t, f.IsEnabled())

		_, err = repo.Find(ctx, "missing")
		require.ErrorIs(t, err, feature.ErrFeatureNotFound)
		_, err = repo.Exists(ctx, "")
		require.ErrorIs(t, err, feature.ErrInvalidArgument)
		require.ErrorIs(t, repo.Save(ctx, nil), feature.ErrInvalidArgument)
	})

	t.Run("returned features are copies", func(t *testing.T) {
		t.Parallel()
		repo := feature.NewMemoryRepository()
		f := mustFeature(t, "f1")
		require.NoError(t, repo.Save(ctx, f))

		f.Enable()
		found, err := repo.Find(ctx, "f1")
		require.NoError(t, err)
		assert.False(t, found.IsEnabled())

		found.Enable()
		again, err := repo.Find(ctx, "f1")
		require.NoError(t, err)
		assert.False(t, again.IsEnabled())
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		repo := feature.NewMemoryRepository(feature.WithFeatures(mustFeature(t, "f1", feature.WithGroup("g"))))

		require.NoError(t, repo.Delete(ctx, "f1"))
		require.ErrorIs(t, repo.Delete(ctx, "f1"), feature.ErrFeatureNotFound)

		exists, err := repo.ExistGroup(ctx, "g")
		require.NoError(t, err)
		assert.False(t, exists, "group disappears with its last member")
	})

	t.Run("insertion order", func(t *testing.T) {
		t.Parallel()
		repo := feature.NewMemoryRepository()
		for _, uid := range []string{"c", "a", "b"} {
			require.NoError(t, repo.Save(ctx, mustFeature(t, uid)))
		}
		require.NoError(t, repo.Save(ctx, mustFeature(t, "a", feature.WithEnabled(true))))

		ids, err := repo.FindAllIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b"}, slices.Collect(ids))

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		var enabled []string
		for f := range all {
			if f.IsEnabled() {
				enabled = append(enabled, f.UID())
			}
		}
		assert.Equal(t, []string{"a"}, enabled)
	})

	t.Run("groups", func(t *testing.T) {
		t.Parallel()
		repo := feature.NewMemoryRepository(feature.WithFeatures(
			mustFeature(t, "f1", feature.WithGroup("beta")),
			mustFeature(t, "f2", feature.WithGroup("alpha")),
			mustFeature(t, "f3", feature.WithGroup("beta")),
			mustFeature(t, "f4"),
			nil,
		))
		assert.Equal(t, 4, repo.Len())

		names, err := repo.ListGroupNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "beta"}, names)

		members, err := repo.ReadGroup(ctx, "beta")
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, "f1", members[0].UID())
		assert.Equal(t, "f3", members[1].UID())

		_, err = repo.ReadGroup(ctx, "gamma")
		require.ErrorIs(t, err, feature.ErrGroupNotFound)

		f1, err := repo.Find(ctx, "f1")
		require.NoError(t, err)
		f1.SetGroup("alpha")
		require.NoError(t, repo.Save(ctx, f1))

		members, err = repo.ReadGroup(ctx, "alpha")
		require.NoError(t, err)
		assert.Len(t, members, 2)
	})

	t.Run("delete all", func(t *testing.T) {
		t.Parallel()
		repo := feature.NewMemoryRepository(feature.WithFeatures(mustFeature(t, "f1", feature.WithGroup("g"))))
		require.NoError(t, repo.DeleteAll(ctx))
		assert.Zero(t, repo.Len())
		names, err := repo.ListGroupNames(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("concurrent access", func(t *testing.T) {
		t.Parallel()
		repo := feature.NewMemoryRepository()
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				group := "even"
				if i%2 == 1 {
					group = "odd"
				}
				assert.NoError(t, repo.Save(ctx, mustFeature(t, string(rune('a'+i)), feature.WithGroup(group))))
			}()
			go func() {
				defer wg.Done()
				_, err := repo.ListGroupNames(ctx)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		even, err := repo.ReadGroup(ctx, "even")
		require.NoError(t, err)
		assert.Len(t, even, 10)
	})
}
