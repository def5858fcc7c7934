package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/logger"
)

// Options controls the safety-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// HTTPAddress overrides the REST and websocket listen address.
	HTTPAddress string
	// GRPCAddress overrides the gRPC listen address.
	GRPCAddress string
}

// ErrOptionsRequired indicates Run was called without options.
var ErrOptionsRequired = errors.New("server options must be provided")

// Run starts the HTTP, websocket and gRPC servers and blocks until ctx is
// canceled or one of them fails. Shutdown is bounded by the configured timeout.
func Run(ctx context.Context, opts *Options) error {
	if opts == nil {
		return ErrOptionsRequired
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "safety-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = applyOverrides(settings, opts); err != nil {
		return err
	}

	// Keep the process logger unless the settings ask for something else.
	if settings.LogLevel != "" || settings.LogFormat != "" {
		logger.Setup(settings.LogLevel, settings.LogFormat)
	}

	defer logger.Sync()

	components, err := newStack(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialise server: %w", err)
	}
	defer components.close(ctx)

	lc := net.ListenConfig{}

	httpListener, err := lc.Listen(ctx, "tcp", settings.HTTPAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.HTTPAddress, err)
	}

	grpcListener, err := lc.Listen(ctx, "tcp", settings.GRPCAddress)
	if err != nil {
		_ = httpListener.Close()

		return fmt.Errorf("listen on %s: %w", settings.GRPCAddress, err)
	}

	logger.InfoKV(ctx, "Safety server listening",
		"http_address", httpListener.Addr().String(),
		"grpc_address", grpcListener.Addr().String(),
		"store", settings.Store.Driver,
		"uploads", settings.Uploads.Dir,
		"redis", settings.Relay.RedisAddress != "")

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := components.app.Listener(httpListener); err != nil {
			return fmt.Errorf("serve http: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		if err := components.grpc.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	if components.publisher != nil {
		group.Go(func() error {
			return components.publisher.Run(groupCtx)
		})
	}

	// Either the caller canceled or a server failed; both end in a drain.
	group.Go(func() error {
		<-groupCtx.Done()

		logger.Info(ctx, "Shutting down safety server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.Timeout)
		defer cancel()

		return components.shutdown(shutdownCtx)
	})

	if err = group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Safety server stopped")

	return nil
}

// applyOverrides replaces configured listen addresses with command line values.
func applyOverrides(settings *config.Config, opts *Options) error {
	for _, override := range []struct {
		value  string
		target *string
	}{
		{opts.HTTPAddress, &settings.HTTPAddress},
		{opts.GRPCAddress, &settings.GRPCAddress},
	} {
		if override.value == "" {
			continue
		}

		if _, _, err := net.SplitHostPort(override.value); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", override.value, err)
		}

		*override.target = override.value
	}

	return nil
}
