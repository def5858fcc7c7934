package alerts

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "safety.alerts.v1.AlertService"

// Full method names.
const (
	MethodApplyAction = "/" + ServiceName + "/ApplyAction"
	MethodGetAlert    = "/" + ServiceName + "/GetAlert"
	MethodListAlerts  = "/" + ServiceName + "/ListAlerts"
)

// AlertServiceServer is the server API of AlertService.
type AlertServiceServer interface {
	ApplyAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes AlertService for grpc.Server registration.
//
//nolint:gochecknoglobals // Descriptors are package-level in generated code too.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlertServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ApplyAction",
			Handler:    unaryHandler(MethodApplyAction, AlertServiceServer.ApplyAction),
		},
		{
			MethodName: "GetAlert",
			Handler:    unaryHandler(MethodGetAlert, AlertServiceServer.GetAlert),
		},
		{
			MethodName: "ListAlerts",
			Handler:    unaryHandler(MethodListAlerts, AlertServiceServer.ListAlerts),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "safety/alerts/v1/alerts.proto",
}

// RegisterAlertServiceServer registers srv on s.
func RegisterAlertServiceServer(s grpc.ServiceRegistrar, srv AlertServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(AlertServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(AlertServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			msg, _ := req.(*structpb.Struct)

			return call(server, ctx, msg)
		}

		return interceptor(ctx, in, info, handler)
	}
}

// AlertServiceClient is the client API of AlertService.
type AlertServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlertServiceClient creates a client on top of cc.
func NewAlertServiceClient(cc grpc.ClientConnInterface) *AlertServiceClient {
	return &AlertServiceClient{cc: cc}
}

// ApplyAction calls AlertService.ApplyAction.
func (c *AlertServiceClient) ApplyAction(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodApplyAction, in, opts...)
}

// GetAlert calls AlertService.GetAlert.
func (c *AlertServiceClient) GetAlert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetAlert, in, opts...)
}

// ListAlerts calls AlertService.ListAlerts.
func (c *AlertServiceClient) ListAlerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListAlerts, in, opts...)
}

func (c *AlertServiceClient) invoke(
	ctx context.Context,
	method string,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
