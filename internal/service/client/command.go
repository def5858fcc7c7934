package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safety-relay/internal/auth"
	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/logger"
	"github.com/oshokin/safety-relay/internal/service/checker"
	"github.com/oshokin/safety-relay/internal/service/common"
)

// Options configures how safetyctl reaches and authenticates to the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides the gRPC address from config when specified.
	ServerAddress string

	// Token is sent as is when set. Otherwise one is minted for Subject and Role.
	Token string
	// Subject is the principal id of a minted token.
	Subject string
	// Role is the principal role of a minted token.
	Role string

	// Output receives command results, stdout when nil.
	Output io.Writer
}

// ActionOptions configures a lifecycle action.
type ActionOptions struct {
	AlertID string
	Action  alert.Action
	Payload alert.Payload
	// Wait retries while the server is unreachable until ctx is canceled.
	Wait bool
}

// defaultRetryInterval defines the delay between attempts when waiting for the server.
const defaultRetryInterval = 1 * time.Second

// errSubjectRequired is returned when a token must be minted without a subject.
var errSubjectRequired = errors.New("subject must be provided to mint a token")

// IssueToken mints a token from the configured secret and prints it.
func IssueToken(_ context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	token, err := mintToken(cfg, opts)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(output(opts), token)

	return err
}

// Apply runs a lifecycle action and prints the updated alert.
func Apply(ctx context.Context, opts *Options, action *ActionOptions) error {
	ctx = logger.WithName(ctx, "safetyctl")

	return withClient(ctx, opts, func(c *common.Client) error {
		attempt := func() (*structpb.Struct, bool, error) {
			resp, err := c.ApplyAction(ctx, action.AlertID, action.Action, action.Payload)
			if err == nil {
				return resp, true, nil
			}

			if action.Wait && retryable(err) {
				// Log error but continue retrying for transient failures.
				logger.ErrorKV(ctx, "ApplyAction failed", "alert_id", action.AlertID, "error", err)

				return nil, false, nil
			}

			return nil, false, err
		}

		// Attempt immediately before starting retry loop.
		resp, done, err := attempt()
		if err != nil {
			return err
		}

		if done {
			return printStruct(opts, resp)
		}

		ticker := time.NewTicker(defaultRetryInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				resp, done, err = attempt()
				if err != nil {
					return err
				}

				if done {
					return printStruct(opts, resp)
				}
			}
		}
	})
}

// Get prints one alert.
func Get(ctx context.Context, opts *Options, alertID string) error {
	return withClient(ctx, opts, func(c *common.Client) error {
		resp, err := c.GetAlert(ctx, alertID)
		if err != nil {
			return err
		}

		return printStruct(opts, resp)
	})
}

// List prints alerts matching filter.
func List(ctx context.Context, opts *Options, filter common.ListFilter) error {
	return withClient(ctx, opts, func(c *common.Client) error {
		resp, err := c.ListAlerts(ctx, filter)
		if err != nil {
			return err
		}

		return printStruct(opts, resp)
	})
}

// Wait polls an alert until it reaches the target status and prints it.
func Wait(ctx context.Context, opts *Options, check checker.Options) error {
	return withClient(ctx, opts, func(c *common.Client) error {
		resp, err := checker.Run(ctx, c, check)
		if err != nil {
			return err
		}

		return printStruct(opts, resp)
	})
}

// withClient loads settings, dials the server and runs call.
func withClient(ctx context.Context, opts *Options, call func(c *common.Client) error) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	token := opts.Token
	if token == "" {
		if token, err = mintToken(cfg, opts); err != nil {
			return err
		}
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := opts.ServerAddress
	if serverAddress == "" {
		serverAddress = dialAddress(cfg.GRPCAddress)
	}

	conn, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Timeout),
		common.WithToken(token),
	)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = conn.Close()
	}()

	logger.DebugKV(ctx, "Calling safety server", "server_address", serverAddress)

	return call(conn)
}

func mintToken(cfg *config.Config, opts *Options) (string, error) {
	if opts.Subject == "" {
		return "", errSubjectRequired
	}

	role, err := alert.ParseRole(opts.Role)
	if err != nil {
		return "", err
	}

	token, err := auth.NewManager(cfg.Auth).Issue(alert.Principal{ID: opts.Subject, Role: role})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	return token, nil
}

// dialAddress turns a listen address such as ":9090" into a dialable one.
func dialAddress(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil || host != "" {
		return listen
	}

	return net.JoinHostPort("localhost", port)
}

// retryable reports whether err means the server could not be reached.
func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

func printStruct(opts *Options, msg *structpb.Struct) error {
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	_, err = fmt.Fprintln(output(opts), string(data))

	return err
}

func output(opts *Options) io.Writer {
	if opts.Output != nil {
		return opts.Output
	}

	return os.Stdout
}
