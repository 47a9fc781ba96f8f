package cache_test

import (
	"testing"
	"time"

	"github.com/owtf/exporter/internal/cache"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test with -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := t.Context()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	endpoint, err := ctr.Endpoint(ctx, "redis")
	require.NoError(t, err)

	c, err := cache.Dial(ctx, endpoint+"/0", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
	})

	src := newSource()
	cached := c.Mappings(src)
	for range 2 {
		got, err := cached.Mapping(ctx, "OWASP_V4")
		require.NoError(t, err)
		require.Equal(t, src.maps["OWASP_V4"], got)
	}
	require.EqualValues(t, 1, src.calls.Load())

	require.NoError(t, c.Invalidate(ctx))
	_, err = cached.Mapping(ctx, "OWASP_V4")
	require.NoError(t, err)
	require.EqualValues(t, 2, src.calls.Load())
}
