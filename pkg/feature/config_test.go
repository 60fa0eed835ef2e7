package feature_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/property"
)

const yamlConfig = `
features:
  - uid: new-ui
    enabled: true
    description: Redesigned UI
    group: ui
    ttl: 720h
    strategies:
      - type: allow-list
        properties:
          - uid: users
            type: list:string
            value: "[alice, bob]"
    properties:
      - uid: theme
        value: dark
        fixedValues: [dark, light]
    permissions:
      admin:
        users: [root]
        roles: [ops]
  - uid: search-v2
    enabled: false
    group: ui
  - uid: rollout
    enabled: true
    strategies:
      - type: percentage
        properties:
          - uid: percentage
            type: int
            value: "100"
`

func TestYAMLParser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg, err := feature.NewYAMLParser().Parse(ctx, strings.NewReader(yamlConfig))
	require.NoError(t, err)
	require.Len(t, cfg.Features, 3)
	assert.Equal(t, "new-ui", cfg.Features[0].UID())

	f, ok := cfg.Feature("new-ui")
	require.True(t, ok)
	assert.True(t, f.IsEnabled())
	assert.Equal(t, "ui", f.Group())
	assert.Equal(t, 720*time.Hour, f.TTL())
	assert.True(t, f.Permissions().IsGranted("admin", "", "ops"))

	theme, ok := f.Property("theme")
	require.True(t, ok)
	require.ErrorIs(t, theme.SetFromString("blue"), property.ErrConstraintViolation)

	on, err := f.IsToggled(ctx, feature.NewToggleContext("bob", nil))
	require.NoError(t, err)
	assert.True(t, on)

	rollout, ok := cfg.Feature("rollout")
	require.True(t, ok)
	on, err = rollout.IsToggled(ctx, feature.NewToggleContext("anyone", nil))
	require.NoError(t, err)
	assert.True(t, on)

	_, ok = cfg.Feature("missing")
	assert.False(t, ok)
}

func TestJSONParser_Comments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	input := `{
		// rollout switches
		"features": [
			{"uid": "dark-mode", "enabled": true, "group": "ui"},
			/* parked */
			{"uid": "search-v2", "group": "ui",},
		],
	}`
	cfg, err := feature.NewJSONParser().Parse(ctx, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cfg.Features, 2)
	assert.True(t, cfg.Features[0].IsEnabled())
	assert.Equal(t, "search-v2", cfg.Features[1].UID())

	cfg, err = feature.NewJSONParser().Parse(ctx, strings.NewReader("// nothing yet\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Features)
}

func TestParsers_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name   string
		parser feature.Parser
		input  string
	}{
		{"malformed yaml", feature.NewYAMLParser(), "features: [uid: {"},
		{"malformed json", feature.NewJSONParser(), `{"features": [`},
		{"duplicate uid", feature.NewYAMLParser(), "features:\n  - uid: a\n  - uid: a\n"},
		{"empty uid", feature.NewJSONParser(), `{"features": [{"uid": ""}]}`},
		{"unknown strategy", feature.NewJSONParser(), `{"features": [{"uid": "a", "strategies": [{"type": "dice"}]}]}`},
		{"bad ttl", feature.NewYAMLParser(), "features:\n  - uid: a\n    ttl: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.parser.Parse(ctx, strings.NewReader(tt.input))
			require.ErrorIs(t, err, feature.ErrConfiguration)
		})
	}

	cfg, err := feature.NewYAMLParser().Parse(ctx, strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cfg.Features)
}

func TestNewParserForFile(t *testing.T) {
	t.Parallel()

	for path, want := range map[string]feature.Parser{
		"features.yaml":  feature.NewYAMLParser(),
		"features.YML":   feature.NewYAMLParser(),
		"features.json":  feature.NewJSONParser(),
		"features.jsonc": feature.NewJSONParser(),
	} {
		p, err := feature.NewParserForFile(path)
		require.NoError(t, err)
		assert.IsType(t, want, p, path)
	}

	_, err := feature.NewParserForFile("features.toml")
	require.ErrorIs(t, err, feature.ErrConfiguration)
}

func TestMemoryRepositoryFromFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "features.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o600))

	repo, err := feature.NewMemoryRepositoryFromFile(ctx, nil, path)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.Len())

	members, err := repo.ReadGroup(ctx, "ui")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = feature.NewMemoryRepositoryFromFile(ctx, nil, filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, feature.ErrConfiguration)

	_, err = feature.NewMemoryRepositoryFromConfig(nil)
	require.ErrorIs(t, err, feature.ErrConfiguration)
}

func TestWriteYAML(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg, err := feature.NewYAMLParser().Parse(ctx, strings.NewReader(yamlConfig))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, feature.WriteYAML(&buf, cfg.Features))

	back, err := feature.NewYAMLParser().Parse(ctx, &buf)
	require.NoError(t, err)
	require.Len(t, back.Features, len(cfg.Features))
	for i := range cfg.Features {
		assert.Equal(t, feature.ToRecord(cfg.Features[i]), feature.ToRecord(back.Features[i]))
	}
}
