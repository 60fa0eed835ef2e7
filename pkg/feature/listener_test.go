package feature_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/feature"
)

type MockListener struct {
	mock.Mock
}

func (m *MockListener) OnCreateSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockListener) OnDeleteAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockListener) OnUpdate(ctx context.Context, f *feature.Feature) error {
	return m.Called(ctx, f).Error(0)
}

func (m *MockListener) OnDelete(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

// orderListener appends its name to a shared log on every notification.
type orderListener struct {
	name string
	mu   *sync.Mutex
	log  *[]string
}

func (l orderListener) record() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.log = append(*l.log, l.name)
	return nil
}

func (l orderListener) OnCreateSchema(context.Context) error {
	return l.record()
}

func (l orderListener) OnDeleteAll(context.Context) error {
	return l.record()
}

func (l orderListener) OnUpdate(context.Context, *feature.Feature) error {
	return l.record()
}

func (l orderListener) OnDelete(context.Context, string) error {
	return l.record()
}

type panicListener struct {
	orderListener
}

func (panicListener) OnUpdate(context.Context, *feature.Feature) error {
	panic("listener bug")
}

func TestListeners(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("notifications", func(t *testing.T) {
		t.Parallel()
		repo := feature.NewMemoryRepository()
		l := new(MockListener)
		l.On("OnCreateSchema", mock.Anything).Return(nil).Once()
		l.On("OnUpdate", mock.Anything, mock.MatchedBy(func(f *feature.Feature) bool { return f.UID() == "f1" })).Return(nil).Once()
		l.On("OnDelete", mock.Anything, "f1").Return(nil).Once()
		l.On("OnDeleteAll", mock.Anything).Return(nil).Once()
		require.NoError(t, repo.RegisterListener("mock", l))

		require.NoError(t, repo.CreateSchema(ctx))
		require.NoError(t, repo.Save(ctx, mustFeature(t, "f1")))
		require.NoError(t, repo.Delete(ctx, "f1"))
		require.ErrorIs(t, repo.Delete(ctx, "f1"), feature.ErrFeatureNotFound)
		require.NoError(t, repo.DeleteAll(ctx))

		l.AssertExpectations(t)
	})

	t.Run("order and replacement", func(t *testing.T) {
		t.Parallel()
		var mu sync.Mutex
		var got []string
		repo := feature.NewMemoryRepository()
		require.NoError(t, repo.RegisterListener("first", orderListener{"first", &mu, &got}))
		require.NoError(t, repo.RegisterListener("second", orderListener{"second", &mu, &got}))
		require.NoError(t, repo.RegisterListener("first", orderListener{"first-v2", &mu, &got}))
		assert.Equal(t, []string{"first", "second"}, repo.Listeners())

		require.NoError(t, repo.CreateSchema(ctx))
		assert.Equal(t, []string{"first-v2", "second"}, got)

		repo.UnregisterListener("first")
		repo.UnregisterListener("unknown")
		assert.Equal(t, []string{"second"}, repo.Listeners())
	})

	t.Run("failures do not reach the caller", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&buf, nil))
		repo := feature.NewMemoryRepository(feature.WithLogger(log))

		var mu sync.Mutex
		var got []string
		failing := new(MockListener)
		failing.On("OnUpdate", mock.Anything, mock.Anything).Return(errors.New("listener down"))
		require.NoError(t, repo.RegisterListener("failing", failing))
		require.NoError(t, repo.RegisterListener("panicking", panicListener{}))
		require.NoError(t, repo.RegisterListener("last", orderListener{"last", &mu, &got}))

		require.NoError(t, repo.Save(ctx, mustFeature(t, "f1")))
		assert.Equal(t, []string{"last"}, got, "later listeners still run")
		assert.Contains(t, buf.String(), "listener down")
		assert.Contains(t, buf.String(), "listener panicked")
		assert.Contains(t, buf.String(), `"listener":"failing"`)
	})

	t.Run("invalid registration", func(t *testing.T) {
		t.Parallel()
		repo := feature.NewMemoryRepository()
		require.ErrorIs(t, repo.RegisterListener("", new(MockListener)), feature.ErrInvalidArgument)
		require.ErrorIs(t, repo.RegisterListener("x", nil), feature.ErrInvalidArgument)
	})

	t.Run("audit listener", func(t *testing.T) {
		t.Parallel()
		events := event.NewMemoryRepository()
		repo := feature.NewMemoryRepository()
		repo.RegisterAuditListener(events, event.WithAuditSource(event.SourceWeb))
		assert.Equal(t, []string{feature.AuditListenerName}, repo.Listeners())

		require.NoError(t, repo.CreateSchema(ctx))
		require.NoError(t, repo.Save(ctx, mustFeature(t, "f1")))
		require.NoError(t, repo.Delete(ctx, "f1"))

		s, err := events.Search(ctx, event.Query{Scope: event.ScopeFeature})
		require.NoError(t, err)
		actions := make([]event.Action, 0, s.Len())
		for e := range s.All() {
			assert.Equal(t, "f1", e.TargetUID)
			assert.Equal(t, event.SourceWeb, e.Source)
			actions = append(actions, e.Action)
		}
		assert.ElementsMatch(t, []event.Action{event.ActionUpdate, event.ActionDelete}, actions)

		schema, err := events.Search(ctx, event.Query{Scope: event.ScopeStore, Action: event.ActionCreateSchema})
		require.NoError(t, err)
		assert.Equal(t, 1, schema.Len())

		repo.UnregisterAuditListener()
		require.NoError(t, repo.Save(ctx, mustFeature(t, "f2")))
		assert.Equal(t, 3, events.Len())
	})
}
