package event_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/event"
)

type widget string

func (w widget) UID() string { return string(w) }

func TestAuditListener(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := event.NewMemoryRepository()
	l := event.NewAuditListener[widget](repo, event.ScopeFeature, event.ScopeStore,
		event.WithAuditSource(event.SourceAPI),
		event.WithAuditHost("node-1"),
	)

	require.NoError(t, l.OnCreateSchema(ctx))
	require.NoError(t, l.OnUpdate(ctx, widget("f1")))
	require.NoError(t, l.OnDelete(ctx, "f1"))
	require.NoError(t, l.OnDeleteAll(ctx))

	s, err := repo.Search(ctx, event.Query{})
	require.NoError(t, err)
	events := s.Events()
	require.Len(t, events, 4)

	type row struct {
		action event.Action
		scope  event.Scope
		target string
	}
	got := make(map[row]int)
	for _, e := range events {
		got[row{e.Action, e.Scope, e.TargetUID}]++
		assert.Equal(t, event.SourceAPI, e.Source)
		assert.Equal(t, "node-1", e.Host)
	}
	assert.Equal(t, map[row]int{
		{event.ActionCreateSchema, event.ScopeStore, ""}: 1,
		{event.ActionUpdate, event.ScopeFeature, "f1"}:   1,
		{event.ActionDelete, event.ScopeFeature, "f1"}:   1,
		{event.ActionDelete, event.ScopeStore, ""}:       1,
	}, got)

	assert.Panics(t, func() {
		event.NewAuditListener[widget](nil, event.ScopeFeature, event.ScopeStore)
	})
}
