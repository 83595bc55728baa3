// Package testutil starts throwaway backends for integration tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// StartRedis runs a Redis container and returns its host:port.
func StartRedis(t *testing.T) string {
	return start(t, "redis:7-alpine", "6379/tcp", nil, "Ready to accept connections")
}

// StartNATS runs a NATS server with JetStream enabled and returns its host:port.
func StartNATS(t *testing.T) string {
	return start(t, "nats:latest", "4222/tcp", []string{"-js"}, "Server is ready")
}

func start(t *testing.T, image, port string, cmd []string, logLine string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := t.Context()
	opts := []testcontainers.ContainerCustomizer{
		testcontainers.WithExposedPorts(port),
		testcontainers.WithWaitStrategy(wait.ForLog(logLine)),
	}
	if len(cmd) > 0 {
		opts = append(opts, testcontainers.WithCmd(cmd...))
	}
	c, err := testcontainers.Run(ctx, image, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(c); err != nil {
			t.Errorf("failed to terminate container: %s", err.Error())
		}
	})

	ep, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	t.Logf("%s at %s", image, ep)
	return ep
}
