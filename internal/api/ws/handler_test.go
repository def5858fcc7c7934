package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	fastws "github.com/fasthttp/websocket"
	"github.com/fxamacker/cbor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/safety-relay/internal/auth"
	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/relay"
)

const forbiddenAlert = "forbidden-alert"

var errDenied = errors.New("denied")

// stubPolicy denies forbiddenAlert and counts lookups.
type stubPolicy struct {
	calls int
}

func (p *stubPolicy) CanJoin(_ context.Context, _ alert.Principal, alertID string) error {
	p.calls++

	if alertID == forbiddenAlert {
		return fmt.Errorf("%w: %w", alert.ErrForbidden, errDenied)
	}

	if alertID == "missing" {
		return alert.ErrNotFound
	}

	return nil
}

func drain(c *client) []Frame {
	var frames []Frame

	for {
		select {
		case f := <-c.send:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func TestDispatchAppliesPolicy(t *testing.T) {
	t.Parallel()

	var (
		ctx      = context.Background()
		hub      = relay.NewHub()
		policy   = new(stubPolicy)
		h        = NewHandler(hub, nil, policy)
		reporter = newClient("c-1", alert.Principal{ID: "u-1", Role: alert.RoleUser}, FormatJSON, nil, 8)
		listener = newClient("c-2", alert.Principal{ID: "p-1", Role: alert.RolePolice}, FormatJSON, nil, 8)
	)

	hub.Connect(ctx, reporter)
	hub.Connect(ctx, listener)

	h.dispatch(ctx, listener, Message{Type: TypeJoinAlert, AlertID: "a-1"})
	h.dispatch(ctx, listener, Message{Type: TypeJoinAlert, AlertID: "a-1"})
	require.Equal(t, []string{"c-2"}, hub.Members("a-1"))
	require.Equal(t, 1, policy.calls, "the policy is consulted once per alert")

	// Chunks for an alert the sender never started or joined are ignored.
	h.dispatch(ctx, reporter, Message{Type: TypeAudioChunk, AlertID: "a-1", Chunk: []byte{1}})
	require.Empty(t, drain(listener))

	h.dispatch(ctx, reporter, Message{Type: TypeAudioStart, AlertID: "a-1", MimeType: "audio/webm"})
	h.dispatch(ctx, reporter, Message{Type: TypeAudioChunk, AlertID: "a-1", MimeType: "audio/webm", Chunk: []byte{1}})
	h.dispatch(ctx, reporter, Message{Type: TypeAudioEnd, AlertID: "a-1"})

	types := make([]string, 0, 5)
	for _, f := range drain(listener) {
		types = append(types, f.Type)
	}

	require.Equal(t, []string{
		string(relay.EventAudioStart),
		string(relay.EventLiveStatus),
		string(relay.EventAudioChunk),
		string(relay.EventAudioEnd),
		string(relay.EventLiveStatus),
	}, types)

	drain(reporter)

	h.dispatch(ctx, reporter, Message{Type: TypeJoinAlert, AlertID: forbiddenAlert})
	h.dispatch(ctx, reporter, Message{Type: TypeAudioStart, AlertID: "missing"})
	require.Equal(t, []Frame{
		ErrorFrame(forbiddenAlert, "access denied"),
		ErrorFrame("missing", "alert not found"),
	}, drain(reporter))
	require.Empty(t, hub.Members(forbiddenAlert))
	require.Empty(t, hub.Live())

	h.dispatch(ctx, reporter, Message{Type: "shout", AlertID: "a-1"})
	h.dispatch(ctx, reporter, Message{Type: TypeJoinAlert})
	require.Empty(t, drain(reporter))
}

func TestClientSendDropsWhenFull(t *testing.T) {
	t.Parallel()

	c := newClient("c-1", alert.Principal{ID: "p-1", Role: alert.RolePolice}, FormatJSON, nil, 1)

	require.True(t, c.Send(relay.Event{Type: relay.EventAudioChunk, AlertID: "a-1", Chunk: []byte{1}}))
	require.False(t, c.Send(relay.Event{Type: relay.EventAudioChunk, AlertID: "a-1", Chunk: []byte{2}}))
	require.Equal(t, uint64(1), c.dropped.Load())

	c.close()
	c.close()

	<-c.send
	require.False(t, c.Send(relay.Event{Type: relay.EventAudioEnd, AlertID: "a-1"}), "closed clients accept nothing")
}

type testServer struct {
	url     string
	hub     *relay.Hub
	tokens  *auth.Manager
	handler *Handler
}

func startServer(t *testing.T) *testServer {
	t.Helper()

	tokens := auth.NewManager(config.Auth{
		Secret:   "0123456789abcdef0123456789abcdef",
		Issuer:   "safety-relay-test",
		TokenTTL: time.Hour,
	})

	var (
		hub     = relay.NewHub()
		handler = NewHandler(hub, auth.NewGatekeeper(tokens), new(stubPolicy))
		app     = fiber.New(fiber.Config{DisableStartupMessage: true})
	)

	handler.Register(app, "/ws")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = app.Listener(ln)
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		require.NoError(t, handler.Shutdown(ctx))
		require.NoError(t, app.ShutdownWithContext(ctx))
	})

	return &testServer{
		url:     "ws://" + ln.Addr().String() + "/ws",
		hub:     hub,
		tokens:  tokens,
		handler: handler,
	}
}

func (s *testServer) dial(t *testing.T, p alert.Principal, query string) *fastws.Conn {
	t.Helper()

	token, err := s.tokens.Issue(p)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := fastws.DefaultDialer.Dial(s.url+query, header)
	require.NoError(t, err)

	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

func readFrame(t *testing.T, conn *fastws.Conn) Frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var f Frame

	switch messageType {
	case fastws.BinaryMessage:
		require.NoError(t, cbor.Unmarshal(data, &f))
	default:
		require.NoError(t, json.Unmarshal(data, &f))
	}

	return f
}

func TestHandshakeRejectsMissingToken(t *testing.T) {
	t.Parallel()

	srv := startServer(t)

	for _, query := range []string{"", "?token=garbage"} {
		_, resp, err := fastws.DefaultDialer.Dial(srv.url+query, nil)
		require.ErrorIs(t, err, fastws.ErrBadHandshake)
		require.NotNil(t, resp)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}

	require.Zero(t, srv.hub.Stats().Connections)
}

func TestHandshakeAcceptsQueryToken(t *testing.T) {
	t.Parallel()

	srv := startServer(t)

	token, err := srv.tokens.Issue(alert.Principal{ID: "p-1", Role: alert.RolePolice})
	require.NoError(t, err)

	conn, resp, err := fastws.DefaultDialer.Dial(srv.url+"?token="+token, nil)
	require.NoError(t, err)

	_ = resp.Body.Close()

	defer conn.Close()

	require.Eventually(t, func() bool {
		return srv.hub.Stats().Connections == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBroadcastOverSockets(t *testing.T) {
	t.Parallel()

	var (
		srv         = startServer(t)
		listener    = srv.dial(t, alert.Principal{ID: "p-1", Role: alert.RolePolice}, "?format=cbor")
		broadcaster = srv.dial(t, alert.Principal{ID: "u-1", Role: alert.RoleUser}, "")
	)

	require.NoError(t, listener.WriteJSON(Message{Type: TypeJoinAlert, AlertID: "a-1"}))
	require.Eventually(t, func() bool {
		return len(srv.hub.Members("a-1")) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, broadcaster.WriteJSON(Message{Type: TypeAudioStart, AlertID: "a-1", MimeType: "audio/webm"}))

	start := readFrame(t, listener)
	require.Equal(t, string(relay.EventAudioStart), start.Type)
	require.Equal(t, "audio/webm", start.MimeType)

	live := readFrame(t, listener)
	require.Equal(t, string(relay.EventLiveStatus), live.Type)
	require.NotNil(t, live.IsLive)
	require.True(t, *live.IsLive)

	chunk, err := cbor.Marshal(Message{Type: TypeAudioChunk, AlertID: "a-1", MimeType: "audio/webm", Chunk: []byte{7, 8, 9}})
	require.NoError(t, err)
	require.NoError(t, broadcaster.WriteMessage(fastws.BinaryMessage, chunk))

	got := readFrame(t, listener)
	require.Equal(t, string(relay.EventAudioChunk), got.Type)
	require.Equal(t, []byte{7, 8, 9}, got.Chunk)

	// Dropping the broadcaster ends the broadcast for everyone still watching.
	require.NoError(t, broadcaster.Close())

	end := readFrame(t, listener)
	require.Equal(t, string(relay.EventAudioEnd), end.Type)

	offline := readFrame(t, listener)
	require.Equal(t, string(relay.EventLiveStatus), offline.Type)
	require.NotNil(t, offline.IsLive)
	require.False(t, *offline.IsLive)

	require.Empty(t, srv.hub.Live())
}
