//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	alertsgrpc "github.com/oshokin/safety-relay/internal/api/grpc/alerts"
	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/version"
)

// Client wraps the gRPC AlertService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the safety server.
	conn *grpc.ClientConn
	// api is the AlertService client.
	api *alertsgrpc.AlertServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// token is sent as a bearer credential on every call.
	token string
	// dialOptions are appended to the default transport options.
	dialOptions []grpc.DialOption
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithToken attaches a bearer token to every call.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithDialOptions appends extra gRPC dial options, e.g. a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

// ListFilter narrows ListAlerts. At most one field is honoured by the server,
// in the order ReporterID, Jurisdiction, OfficerID.
type ListFilter struct {
	ReporterID   string
	Jurisdiction string
	OfficerID    string
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errAlertIDRequired is returned when a call needs an alert id.
	errAlertIDRequired = errors.New("alert id must be provided")
)

// Dial establishes a gRPC connection to the safety server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append(
		[]grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithUserAgent(version.UserAgent("safetyctl")),
		},
		client.dialOptions...,
	)

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial safety server: %w", err)
	}

	client.conn = conn
	client.api = alertsgrpc.NewAlertServiceClient(conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// ApplyAction runs a lifecycle action on an alert.
func (c *Client) ApplyAction(
	ctx context.Context,
	alertID string,
	action alert.Action,
	payload alert.Payload,
) (*structpb.Struct, error) {
	if alertID == "" {
		return nil, errAlertIDRequired
	}

	request, err := structpb.NewStruct(map[string]any{
		alertsgrpc.FieldAlertID: alertID,
		alertsgrpc.FieldAction:  string(action),
		alertsgrpc.FieldPayload: payloadFields(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.ApplyAction(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", action, err)
	}

	return response, nil
}

// GetAlert fetches a single alert.
func (c *Client) GetAlert(ctx context.Context, alertID string) (*structpb.Struct, error) {
	if alertID == "" {
		return nil, errAlertIDRequired
	}

	request, err := structpb.NewStruct(map[string]any{alertsgrpc.FieldAlertID: alertID})
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.GetAlert(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}

	return response, nil
}

// ListAlerts lists alerts matching the filter.
func (c *Client) ListAlerts(ctx context.Context, filter ListFilter) (*structpb.Struct, error) {
	fields := make(map[string]any, 1)

	switch {
	case filter.ReporterID != "":
		fields[alertsgrpc.FieldReporterID] = filter.ReporterID
	case filter.Jurisdiction != "":
		fields[alertsgrpc.FieldJurisdiction] = filter.Jurisdiction
	case filter.OfficerID != "":
		fields[alertsgrpc.FieldOfficerID] = filter.OfficerID
	}

	request, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.ListAlerts(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	return response, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The bearer token
// is attached as outgoing metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

func payloadFields(p alert.Payload) map[string]any {
	fields := make(map[string]any)

	for name, value := range map[string]string{
		"assignedOfficerId": p.OfficerID,
		"station":           p.Station,
		"badge":             p.Badge,
		"jurisdiction":      p.Jurisdiction,
		"reason":            p.Reason,
	} {
		if value != "" {
			fields[name] = value
		}
	}

	return fields
}
