package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/safety-relay/internal/relay"
)

// testRedisAddr can be overridden with SAFETY_RELAY_TEST_REDIS.
const testRedisAddr = "localhost:6379"

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("SAFETY_RELAY_TEST_REDIS")
	if addr == "" {
		addr = testRedisAddr
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestNewRedisPublisherRequiresChannel(t *testing.T) {
	t.Parallel()

	_, err := NewRedisPublisher(redis.NewClient(&redis.Options{}), "", 1)
	require.ErrorIs(t, err, ErrChannelRequired)
}

func TestRedisPublisherDropsWhenFull(t *testing.T) {
	t.Parallel()

	// No command is sent until Run starts, so the address is never dialed.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })

	p, err := NewRedisPublisher(client, "live", 2)
	require.NoError(t, err)

	ev := relay.Event{Type: relay.EventLiveStatus, AlertID: "a-1", IsLive: true}

	require.True(t, p.Publish(ev))
	require.True(t, p.Publish(ev))
	require.False(t, p.Publish(ev))
	require.Equal(t, uint64(1), p.Dropped())
}

func TestRedisPublisherRoundTrip(t *testing.T) {
	t.Parallel()

	var (
		client  = newTestClient(t)
		channel = "safety-relay-test-" + time.Now().Format("150405.000000000")
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan relay.Event, 1)
	subscribed := make(chan error, 1)

	go func() {
		subscribed <- Subscribe(ctx, client, channel, func(ev relay.Event) {
			select {
			case received <- ev:
			default:
			}
		})
	}()

	p, err := NewRedisPublisher(client, channel, 4)
	require.NoError(t, err)

	go func() {
		_ = p.Run(ctx)
	}()

	want := relay.Event{Type: relay.EventLiveStatus, AlertID: "a-1", MimeType: "audio/webm", IsLive: true}

	var got relay.Event

	// The subscriber may not be registered yet; keep publishing until it sees one.
	require.Eventually(t, func() bool {
		p.Publish(want)

		select {
		case got = <-received:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 4*time.Second, 100*time.Millisecond)
	require.Equal(t, want, got)

	cancel()
	require.NoError(t, <-subscribed)
}
