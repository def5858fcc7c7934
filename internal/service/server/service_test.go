package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpcalerts "github.com/oshokin/safety-relay/internal/api/grpc/alerts"
	"github.com/oshokin/safety-relay/internal/config"
)

// testSettings returns validated settings rooted in a temporary directory.
func testSettings(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	settings := &config.Config{
		HTTPAddress: "127.0.0.1:0",
		GRPCAddress: "127.0.0.1:0",
		Timeout:     2 * time.Second,
		Auth:        config.Auth{Secret: "0123456789abcdef0123456789abcdef"},
		Store:       config.Store{Driver: config.DriverSQLite, DSN: filepath.Join(dir, "alerts.db")},
		Uploads:     config.Uploads{Dir: filepath.Join(dir, "uploads")},
	}

	require.NoError(t, config.Validate(settings))

	return settings
}

// TestNewStack_WiresTransports verifies the assembled stack serves health on both transports.
func TestNewStack_WiresTransports(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	s, err := newStack(ctx, testSettings(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		s.close(ctx)
	})

	require.Nil(t, s.publisher)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	// The websocket route refuses plain requests before authenticating.
	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, WebsocketPath, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	check, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: grpcalerts.ServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check.GetStatus())

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	require.NoError(t, s.shutdown(shutdownCtx))

	check, err = s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: grpcalerts.ServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check.GetStatus())
}

// TestNewStack_RedisPublisher ensures a configured redis address enables the publisher.
func TestNewStack_RedisPublisher(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	settings := testSettings(t)
	settings.Relay.RedisAddress = "127.0.0.1:1"

	s, err := newStack(ctx, settings)
	require.NoError(t, err)

	t.Cleanup(func() {
		s.close(ctx)
	})

	require.NotNil(t, s.publisher)
	require.NotNil(t, s.redis)
}

// TestApplyOverrides checks that command line addresses replace configured ones.
func TestApplyOverrides(t *testing.T) {
	t.Parallel()

	settings := &config.Config{HTTPAddress: ":8080", GRPCAddress: ":9090"}

	require.NoError(t, applyOverrides(settings, &Options{GRPCAddress: "127.0.0.1:9999"}))
	require.Equal(t, ":8080", settings.HTTPAddress)
	require.Equal(t, "127.0.0.1:9999", settings.GRPCAddress)

	require.Error(t, applyOverrides(settings, &Options{HTTPAddress: "no-port"}))
	require.Equal(t, ":8080", settings.HTTPAddress)
}

// TestRun_Errors covers failures before any listener is opened.
func TestRun_Errors(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Run(context.Background(), nil), ErrOptionsRequired)

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorContains(t, err, "load settings")
}

// TestRun_StopsOnCancel boots the full server and expects a clean exit on cancel.
func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(cfgPath, testSettings(t)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, &Options{ConfigPath: cfgPath})
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
