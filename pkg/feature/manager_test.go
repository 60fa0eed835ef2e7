package feature_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

type MockEventLogger struct {
	mock.Mock
}

func (m *MockEventLogger) Log(ctx context.Context, e event.Event) error {
	return m.Called(ctx, e).Error(0)
}

func TestManager_Check(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	allow, err := feature.NewAllowList("alice")
	require.NoError(t, err)

	newManager := func(opts ...feature.ManagerOption) (*feature.Manager, *event.MemoryRepository) {
		events := event.NewMemoryRepository()
		repo := feature.NewMemoryRepository(feature.WithFeatures(
			mustFeature(t, "on", feature.WithEnabled(true)),
			mustFeature(t, "off"),
			mustFeature(t, "vip", feature.WithEnabled(true), feature.WithStrategies(allow)),
		))
		return feature.NewManager(repo, append([]feature.ManagerOption{feature.WithUsageLogger(events)}, opts...)...), events
	}

	t.Run("records hits for positive checks", func(t *testing.T) {
		t.Parallel()
		m, events := newManager(feature.WithSource(event.SourceWeb))

		for _, tc := range []struct {
			uid  string
			user string
			want bool
		}{
			{"on", "", true},
			{"off", "", false},
			{"vip", "alice", true},
			{"vip", "bob", false},
		} {
			on, err := m.Check(ctx, tc.uid, feature.NewToggleContext(tc.user, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.want, on, tc.uid+"/"+tc.user)
		}

		hits, err := events.HitCount(ctx, event.Query{})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"on": 1, "vip": 1}, hits)

		byUser, err := events.HitCountBy(ctx, event.Query{Source: event.SourceWeb}, event.DimensionUser)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"": 1, "alice": 1}, byUser)
	})

	t.Run("unknown feature", func(t *testing.T) {
		t.Parallel()
		m, _ := newManager()
		_, err := m.Check(ctx, "ghost", feature.ToggleContext{})
		require.ErrorIs(t, err, feature.ErrFeatureNotFound)
	})

	t.Run("auto create", func(t *testing.T) {
		t.Parallel()
		m, _ := newManager(feature.WithAutoCreate())
		on, err := m.Check(ctx, "ghost", feature.ToggleContext{})
		require.NoError(t, err)
		assert.False(t, on)

		f, err := m.Repository().Find(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, f.IsEnabled())
	})

	t.Run("usage logger failures are swallowed", func(t *testing.T) {
		t.Parallel()
		usage := new(MockEventLogger)
		usage.On("Log", mock.Anything, mock.Anything).Return(errors.New("down"))
		repo := feature.NewMemoryRepository(feature.WithFeatures(mustFeature(t, "on", feature.WithEnabled(true))))
		m := feature.NewManager(repo, feature.WithUsageLogger(usage))

		on, err := m.Check(ctx, "on", feature.ToggleContext{})
		require.NoError(t, err)
		assert.True(t, on)
		usage.AssertNumberOfCalls(t, "Log", 1)
	})
}

func TestManager_Toggles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newManager := func() (*feature.Manager, *event.MemoryRepository) {
		usage := event.NewMemoryRepository()
		repo := feature.NewMemoryRepository(feature.WithFeatures(
			mustFeature(t, "a", feature.WithGroup("g")),
			mustFeature(t, "b", feature.WithGroup("g")),
			mustFeature(t, "c"),
		))
		return feature.NewManager(repo, feature.WithUsageLogger(usage)), usage
	}

	t.Run("enable and disable", func(t *testing.T) {
		t.Parallel()
		m, usage := newManager()
		require.NoError(t, m.Enable(ctx, "c"))
		on, err := m.Check(ctx, "c", feature.ToggleContext{})
		require.NoError(t, err)
		assert.True(t, on)

		require.NoError(t, m.Disable(ctx, "c"))
		on, err = m.Check(ctx, "c", feature.ToggleContext{})
		require.NoError(t, err)
		assert.False(t, on)

		require.ErrorIs(t, m.Enable(ctx, "ghost"), feature.ErrFeatureNotFound)

		toggles, err := usage.Search(ctx, event.Query{TargetUID: "c"})
		require.NoError(t, err)
		var actions []event.Action
		for e := range toggles.All() {
			actions = append(actions, e.Action)
		}
		assert.Contains(t, actions, event.ActionToggleOn)
		assert.Contains(t, actions, event.ActionToggleOff)
	})

	t.Run("groups", func(t *testing.T) {
		t.Parallel()
		m, _ := newManager()
		require.NoError(t, m.EnableGroup(ctx, "g"))
		for _, uid := range []string{"a", "b"} {
			on, err := m.Check(ctx, uid, feature.ToggleContext{})
			require.NoError(t, err)
			assert.True(t, on, uid)
		}
		require.NoError(t, m.DisableGroup(ctx, "g"))
		on, err := m.Check(ctx, "a", feature.ToggleContext{})
		require.NoError(t, err)
		assert.False(t, on)

		require.ErrorIs(t, m.EnableGroup(ctx, "nope"), feature.ErrGroupNotFound)
	})

	t.Run("group membership", func(t *testing.T) {
		t.Parallel()
		m, _ := newManager()
		repo := m.Repository()

		require.NoError(t, m.AddToGroup(ctx, "c", "g"))
		members, err := repo.ReadGroup(ctx, "g")
		require.NoError(t, err)
		assert.Len(t, members, 3)

		require.ErrorIs(t, m.RemoveFromGroup(ctx, "c", "other"), feature.ErrInvalidArgument)
		require.NoError(t, m.RemoveFromGroup(ctx, "a", "g"))
		require.NoError(t, m.RemoveFromGroup(ctx, "b", "g"))
		require.NoError(t, m.RemoveFromGroup(ctx, "c", "g"))

		exists, err := repo.ExistGroup(ctx, "g")
		require.NoError(t, err)
		assert.False(t, exists)

		require.ErrorIs(t, m.AddToGroup(ctx, "a", ""), feature.ErrInvalidArgument)
	})
}

func TestManager_Logging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatJSON))
	repo := feature.NewMemoryRepository(feature.WithFeatures(
		mustFeature(t, "broken", feature.WithEnabled(true), feature.WithStrategies(stubStrategy{})),
		mustFeature(t, "a", feature.WithGroup("ui")),
	))
	m := feature.NewManager(repo, feature.WithManagerLogger(log))

	_, err := m.Check(ctx, "broken", feature.ToggleContext{})
	require.ErrorIs(t, err, errStub)
	assert.Equal(t, int32(1), brokenCalls.Load())
	assert.Contains(t, buf.String(), `"strategy":"stub"`)
	assert.Contains(t, buf.String(), `"feature":"broken"`)

	require.NoError(t, m.EnableGroup(ctx, "ui"))
	assert.Contains(t, buf.String(), `"feature_group":"ui"`)
}
