package feature_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

func TestManager_Tracing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	repo := feature.NewMemoryRepository(feature.WithFeatures(
		mustFeature(t, "on", feature.WithEnabled(true), feature.WithGroup("ui")),
	))
	m := feature.NewManager(repo, feature.WithTracerProvider(tp))

	on, err := m.Check(ctx, "on", feature.NewToggleContext("alice", nil))
	require.NoError(t, err)
	assert.True(t, on)

	_, err = m.Check(ctx, "missing", feature.NewToggleContext("alice", nil))
	require.ErrorIs(t, err, feature.ErrFeatureNotFound)

	require.NoError(t, m.DisableGroup(ctx, "ui"))

	spans := rec.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "feature.Check", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Bool("feature.on", true))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Contains(t, spans[1].Attributes(), attribute.String("feature.uid", "missing"))

	assert.Equal(t, "feature.ToggleGroup", spans[2].Name())
	assert.Contains(t, spans[2].Attributes(), attribute.Int("feature.group.size", 1))
}
