package opensearch_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/opensearch"
)

func TestNew_NoAddresses(t *testing.T) {
	t.Parallel()

	_, err := opensearch.New(context.Background(), opensearch.Config{})
	assert.ErrorIs(t, err, opensearch.ErrConnectionFailed)
	assert.ErrorIs(t, err, opensearch.ErrNoAddresses)
}

func TestNew_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := opensearch.New(context.Background(), opensearch.Config{
		Addresses:    []string{"http://127.0.0.1:1"},
		DisableRetry: true,
	})
	assert.ErrorIs(t, err, opensearch.ErrHealthcheckFailed)
}

func TestNew_Server(t *testing.T) {
	addrs := os.Getenv("OPENSEARCH_ADDRESSES")
	if addrs == "" {
		t.Skip("OPENSEARCH_ADDRESSES is not set")
	}

	ctx := context.Background()
	client, err := opensearch.New(ctx, opensearch.Config{
		Addresses: strings.Split(addrs, ","),
		Username:  os.Getenv("OPENSEARCH_USERNAME"),
		Password:  os.Getenv("OPENSEARCH_PASSWORD"),
	})
	require.NoError(t, err)
	assert.NoError(t, opensearch.Healthcheck(client)(ctx))
}
