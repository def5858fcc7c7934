package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/oshokin/safety-relay/internal/logger"
	"github.com/oshokin/safety-relay/internal/relay"
)

// DefaultQueueSize bounds the events waiting to be published.
const DefaultQueueSize = 256

// ErrChannelRequired is returned when no pub/sub channel is configured.
var ErrChannelRequired = errors.New("redis channel must be provided")

// RedisPublisher implements relay.Publisher on top of Redis PUBLISH.
// Publish only enqueues; Run drains the queue.
type RedisPublisher struct {
	// client is the Redis connection.
	client redis.UniversalClient
	// channel is the pub/sub channel name.
	channel string
	// queue holds events until Run publishes them.
	queue chan relay.Event
	// dropped counts events rejected because the queue was full.
	dropped atomic.Uint64
}

// NewRedisPublisher creates a publisher. queueSize <= 0 selects DefaultQueueSize.
func NewRedisPublisher(client redis.UniversalClient, channel string, queueSize int) (*RedisPublisher, error) {
	if channel == "" {
		return nil, ErrChannelRequired
	}

	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &RedisPublisher{
		client:  client,
		channel: channel,
		queue:   make(chan relay.Event, queueSize),
	}, nil
}

// Publish enqueues ev and reports whether it was accepted. It never blocks.
func (p *RedisPublisher) Publish(ev relay.Event) bool {
	select {
	case p.queue <- ev:
		return true
	default:
		p.dropped.Add(1)

		return false
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (p *RedisPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Run publishes queued events until ctx is canceled. Failed publishes are
// logged and skipped.
func (p *RedisPublisher) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "redis-publisher")

	logger.InfoKV(ctx, "Publishing global events", "channel", p.channel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-p.queue:
			if err := p.send(ctx, ev); err != nil {
				logger.WarnKV(ctx, "Failed to publish event", "type", ev.Type, "alert_id", ev.AlertID, "error", err)
			}
		}
	}
}

func (p *RedisPublisher) send(ctx context.Context, ev relay.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err = p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

// Subscribe delivers events published on channel to handle until ctx is
// canceled. Messages that do not decode are skipped.
func Subscribe(ctx context.Context, client redis.UniversalClient, channel string, handle func(relay.Event)) error {
	if channel == "" {
		return ErrChannelRequired
	}

	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	// Wait for the subscription confirmation so callers know it is active.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	messages := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var ev relay.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.DebugKV(ctx, "Skipping malformed event", "channel", channel, "error", err)

				continue
			}

			handle(ev)
		}
	}
}
