package monitor

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "outagewatch.v1.MonitorService"
	// CheckNowMethod is the full method path of CheckNow.
	CheckNowMethod = "/" + ServiceName + "/CheckNow"
	// ActorMetadataKey carries "user@host" of the caller for audit logs.
	ActorMetadataKey = "x-outage-watch-actor"
)

// MonitorServiceServer is the server API of the monitor service.
type MonitorServiceServer interface {
	CheckNow(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// MonitorServiceDesc describes the service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var MonitorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MonitorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CheckNow",
			Handler:    checkNowHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "outagewatch/v1/monitor.proto",
}

// RegisterMonitorServiceServer registers srv with the gRPC registrar.
func RegisterMonitorServiceServer(registrar grpc.ServiceRegistrar, srv MonitorServiceServer) {
	registrar.RegisterService(&MonitorServiceDesc, srv)
}

// checkNowHandler decodes the request and runs the interceptor chain.
func checkNowHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodDesc.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(MonitorServiceServer).CheckNow(ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: CheckNowMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServiceServer).CheckNow(ctx, req.(*emptypb.Empty)) //nolint:forcetypeassert // Same as above.
	}

	return interceptor(ctx, in, info, handler)
}
