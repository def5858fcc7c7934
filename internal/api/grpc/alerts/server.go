package alerts

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/logger"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Get(ctx context.Context, actor alert.Principal, id string) (*alert.Alert, error)
	List(ctx context.Context, actor alert.Principal) ([]*alert.Alert, error)
	ListByReporter(ctx context.Context, actor alert.Principal, reporterID string) ([]*alert.Alert, error)
	ListByJurisdiction(ctx context.Context, actor alert.Principal, jurisdiction string) ([]*alert.Alert, error)
	ListAssigned(ctx context.Context, actor alert.Principal, officerID string) ([]*alert.Alert, error)
	Apply(
		ctx context.Context,
		actor alert.Principal,
		id string,
		action alert.Action,
		payload alert.Payload,
	) (*alert.Alert, error)
}

// Authenticator validates the bearer token from call metadata.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (alert.Principal, error)
}

// Server implements the AlertService gRPC API.
type Server struct {
	// service provides the business logic for alert operations.
	service Service
}

var _ AlertServiceServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// ApplyAction runs a lifecycle action: {"alertId", "action", "payload"}.
func (s *Server) ApplyAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	alertID := stringField(req, FieldAlertID)
	if alertID == "" {
		return nil, status.Error(codes.InvalidArgument, "alertId is required")
	}

	updated, err := s.service.Apply(
		ctx,
		PrincipalFromContext(ctx),
		alertID,
		alert.Action(stringField(req, FieldAction)),
		toPayload(req),
	)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(toAlertStruct(updated))
}

// GetAlert returns one alert: {"alertId"}.
func (s *Server) GetAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	alertID := stringField(req, FieldAlertID)
	if alertID == "" {
		return nil, status.Error(codes.InvalidArgument, "alertId is required")
	}

	found, err := s.service.Get(ctx, PrincipalFromContext(ctx), alertID)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(toAlertStruct(found))
}

// ListAlerts lists alerts. At most one filter applies, checked in the order
// reporterId, jurisdiction, officerId; no filter lists everything.
func (s *Server) ListAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var (
		actor  = PrincipalFromContext(ctx)
		alerts []*alert.Alert
		err    error
	)

	switch {
	case stringField(req, FieldReporterID) != "":
		alerts, err = s.service.ListByReporter(ctx, actor, stringField(req, FieldReporterID))
	case stringField(req, FieldJurisdiction) != "":
		alerts, err = s.service.ListByJurisdiction(ctx, actor, stringField(req, FieldJurisdiction))
	case stringField(req, FieldOfficerID) != "":
		alerts, err = s.service.ListAssigned(ctx, actor, stringField(req, FieldOfficerID))
	default:
		alerts, err = s.service.List(ctx, actor)
	}

	if err != nil {
		return nil, toStatus(err)
	}

	return encode(toAlertListStruct(alerts))
}

func encode(msg *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode response")
	}

	return msg, nil
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, alert.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, alert.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, alert.ErrInvalidAction), errors.Is(err, alert.ErrInvalidPayload):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, alert.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

type principalKey struct{}

// PrincipalFromContext returns the principal stored by the auth interceptor.
func PrincipalFromContext(ctx context.Context) alert.Principal {
	principal, _ := ctx.Value(principalKey{}).(alert.Principal)

	return principal
}

// UnaryAuthInterceptor authenticates every AlertService call from the
// "authorization" metadata. Other services, such as health, pass through.
func UnaryAuthInterceptor(authenticator Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {
			return handler(ctx, req)
		}

		var credential string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("authorization"); len(values) > 0 {
				credential = values[0]
			}
		}

		principal, err := authenticator.Authenticate(ctx, credential)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or missing bearer token")
		}

		ctx = context.WithValue(ctx, principalKey{}, principal)

		resp, err := handler(ctx, req)
		if err != nil {
			logger.DebugKV(ctx, "RPC failed", "method", info.FullMethod, "principal", principal.String(), "error", err)
		}

		return resp, err
	}
}
