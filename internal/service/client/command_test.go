package client

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/safety-relay/internal/auth"
	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/domain/alert"
)

// writeConfig saves a minimal valid configuration and returns its path.
func writeConfig(t *testing.T) (string, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		GRPCAddress: ":9090",
		Auth:        config.Auth{Secret: "0123456789abcdef0123456789abcdef"},
	}

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(path, cfg))

	return path, cfg
}

// TestIssueToken verifies the printed token validates against the same secret.
func TestIssueToken(t *testing.T) {
	t.Parallel()

	path, cfg := writeConfig(t)

	var out bytes.Buffer

	err := IssueToken(context.Background(), &Options{
		ConfigPath: path,
		Subject:    "officer-7",
		Role:       "Police",
		Output:     &out,
	})
	require.NoError(t, err)

	principal, err := auth.NewManager(cfg.Auth).Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	require.Equal(t, alert.Principal{ID: "officer-7", Role: alert.RolePolice}, principal)
}

// TestIssueToken_Rejects covers missing subjects and unknown roles.
func TestIssueToken_Rejects(t *testing.T) {
	t.Parallel()

	path, _ := writeConfig(t)

	err := IssueToken(context.Background(), &Options{ConfigPath: path, Role: "admin"})
	require.ErrorIs(t, err, errSubjectRequired)

	err = IssueToken(context.Background(), &Options{ConfigPath: path, Subject: "x", Role: "mayor"})
	require.ErrorIs(t, err, alert.ErrInvalidPayload)
}

// TestWatch_RequiresRedis ensures watch refuses to run without a redis address.
func TestWatch_RequiresRedis(t *testing.T) {
	t.Parallel()

	path, _ := writeConfig(t)

	require.ErrorIs(t, Watch(context.Background(), &Options{ConfigPath: path}), errRedisNotConfigured)
}

func TestDialAddress(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		":9090":           "localhost:9090",
		"10.0.0.5:9090":   "10.0.0.5:9090",
		"passthrough:///": "passthrough:///",
	}

	for listen, want := range tests {
		require.Equal(t, want, dialAddress(listen), listen)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	require.True(t, retryable(status.Error(codes.Unavailable, "down")))
	require.True(t, retryable(status.Error(codes.DeadlineExceeded, "slow")))
	require.False(t, retryable(status.Error(codes.PermissionDenied, "no")))
	require.False(t, retryable(context.Canceled))
}
