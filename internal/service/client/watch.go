package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/logger"
	"github.com/oshokin/safety-relay/internal/notify"
	"github.com/oshokin/safety-relay/internal/relay"
)

// errRedisNotConfigured is returned by Watch when no redis address is known.
var errRedisNotConfigured = errors.New("relay redis address is not configured")

// Watch prints live-status and recording-saved events as JSON lines until ctx
// is canceled.
func Watch(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "safetyctl-watch")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if cfg.Relay.RedisAddress == "" {
		return errRedisNotConfigured
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Relay.RedisAddress})

	defer func() {
		_ = client.Close()
	}()

	encoder := json.NewEncoder(output(opts))

	logger.InfoKV(ctx, "Watching relay events", "redis", cfg.Relay.RedisAddress, "channel", cfg.Relay.RedisChannel)

	err = notify.Subscribe(ctx, client, cfg.Relay.RedisChannel, func(ev relay.Event) {
		if err := encoder.Encode(ev); err != nil {
			logger.WarnKV(ctx, "Failed to print event", "error", err)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch events: %w", err)
	}

	return nil
}
