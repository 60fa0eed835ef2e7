package property_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/property"
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

func (m *MockListener) OnUpdate(ctx context.Context, p property.Property) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockListener) OnDelete(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

type panicListener struct{}

func (panicListener) OnCreateSchema(context.Context) error { return nil }
func (panicListener) OnDeleteAll(context.Context) error { return nil }
func (panicListener) OnDelete(context.Context, string) error { return nil }
func (panicListener) OnUpdate(context.Context, property.Property) error {
	panic("listener bug")
}

func mustInt(t *testing.T, uid string, v int, opts ...property.Option) *property.Typed[int] {
	t.Helper()
	p, err := property.NewInt(uid, v, opts...)
	require.NoError(t, err)
	return p
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("crud", func(t *testing.T) {
		t.Parallel()
		store := property.NewMemoryStore(property.WithProperties(mustInt(t, "retries", 3), nil))
		assert.Equal(t, 1, store.Len())

		require.NoError(t, store.Save(ctx, mustInt(t, "timeout", 30)))
		ok, err := store.Exists(ctx, "timeout")
		require.NoError(t, err)
		assert.True(t, ok)

		p, err := store.Find(ctx, "retries")
		require.NoError(t, err)
		require.NoError(t, p.SetFromString("9"))
		again, err := store.Find(ctx, "retries")
		require.NoError(t, err)
		assert.Equal(t, "3", again.Encode(), "returned copies are not shared")

		ids, err := store.FindAllIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"retries", "timeout"}, slices.Collect(ids))

		require.NoError(t, store.Delete(ctx, "retries"))
		require.ErrorIs(t, store.Delete(ctx, "retries"), property.ErrPropertyNotFound)
		_, err = store.Find(ctx, "retries")
		require.ErrorIs(t, err, property.ErrPropertyNotFound)

		require.NoError(t, store.DeleteAll(ctx))
		all, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, slices.Collect(all))
	})

	t.Run("invalid arguments", func(t *testing.T) {
		t.Parallel()
		store := property.NewMemoryStore()
		require.ErrorIs(t, store.Save(ctx, nil), property.ErrInvalidArgument)
		_, err := store.Find(ctx, "")
		require.ErrorIs(t, err, property.ErrInvalidArgument)
		_, err = store.Exists(ctx, "")
		require.ErrorIs(t, err, property.ErrInvalidArgument)
		require.ErrorIs(t, store.Delete(ctx, ""), property.ErrInvalidArgument)
	})

	t.Run("set value keeps fixed values", func(t *testing.T) {
		t.Parallel()
		store := property.NewMemoryStore(property.WithProperties(
			mustInt(t, "replicas", 1, property.WithFixedValues("1", "3")),
		))

		require.NoError(t, store.SetValue(ctx, "replicas", "3"))
		require.ErrorIs(t, store.SetValue(ctx, "replicas", "2"), property.ErrConstraintViolation)
		require.ErrorIs(t, store.SetValue(ctx, "replicas", "x"), property.ErrParse)
		require.ErrorIs(t, store.SetValue(ctx, "missing", "1"), property.ErrPropertyNotFound)

		p, err := store.Find(ctx, "replicas")
		require.NoError(t, err)
		assert.Equal(t, "3", p.Encode())
	})
}

func TestMemoryStore_Listeners(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("notified after each change", func(t *testing.T) {
		t.Parallel()
		store := property.NewMemoryStore()
		l := new(MockListener)
		l.On("OnCreateSchema", ctx).Return(nil).Once()
		l.On("OnUpdate", ctx, mock.MatchedBy(func(p property.Property) bool {
			return p.UID() == "retries"
		})).Return(nil).Twice()
		l.On("OnDelete", ctx, "retries").Return(nil).Once()
		l.On("OnDeleteAll", ctx).Return(errors.New("ignored")).Once()

		require.NoError(t, store.RegisterListener("mock", l))
		require.NoError(t, store.CreateSchema(ctx))
		require.NoError(t, store.Save(ctx, mustInt(t, "retries", 3)))
		require.NoError(t, store.SetValue(ctx, "retries", "4"))
		require.NoError(t, store.Delete(ctx, "retries"))
		require.NoError(t, store.DeleteAll(ctx), "listener errors never fail the store")
		l.AssertExpectations(t)

		store.UnregisterListener("mock")
		assert.Empty(t, store.Listeners())
	})

	t.Run("registration", func(t *testing.T) {
		t.Parallel()
		store := property.NewMemoryStore()
		require.ErrorIs(t, store.RegisterListener("", new(MockListener)), property.ErrInvalidArgument)
		require.ErrorIs(t, store.RegisterListener("x", nil), property.ErrInvalidArgument)

		require.NoError(t, store.RegisterListener("a", new(MockListener)))
		require.NoError(t, store.RegisterListener("b", new(MockListener)))
		require.NoError(t, store.RegisterListener("a", panicListener{}))
		assert.Equal(t, []string{"a", "b"}, store.Listeners())
	})

	t.Run("panics are logged", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		store := property.NewMemoryStore(property.WithStoreLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
		require.NoError(t, store.RegisterListener("buggy", panicListener{}))

		require.NoError(t, store.Save(ctx, mustInt(t, "retries", 3)))
		assert.Contains(t, buf.String(), "listener panicked")
		assert.Contains(t, buf.String(), `"listener":"buggy"`)
	})

	t.Run("audit", func(t *testing.T) {
		t.Parallel()
		events := event.NewMemoryRepository()
		store := property.NewMemoryStore()
		store.RegisterAuditListener(events, event.WithAuditSource(event.SourceAPI))
		assert.Equal(t, []string{property.AuditListenerName}, store.Listeners())

		require.NoError(t, store.Save(ctx, mustInt(t, "retries", 3)))
		require.NoError(t, store.Delete(ctx, "retries"))
		require.NoError(t, store.DeleteAll(ctx))

		series, err := events.Search(ctx, event.Query{})
		require.NoError(t, err)
		type row struct {
			action event.Action
			scope  event.Scope
			target string
		}
		var got []row
		for e := range series.All() {
			got = append(got, row{e.Action, e.Scope, e.TargetUID})
		}
		assert.ElementsMatch(t, []row{
			{event.ActionUpdate, event.ScopeProperty, "retries"},
			{event.ActionDelete, event.ScopeProperty, "retries"},
			{event.ActionDelete, event.ScopePropertyStore, ""},
		}, got)

		store.UnregisterAuditListener()
		assert.Empty(t, store.Listeners())
	})
}
