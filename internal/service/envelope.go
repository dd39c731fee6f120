package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "envelope.v1.EnvelopeService"

const (
	clipMethod         = "/" + ServiceName + "/Clip"
	activeBoundsMethod = "/" + ServiceName + "/ActiveBounds"
)

// #region server-api
// EnvelopeServiceServer is the server API for EnvelopeService.
type EnvelopeServiceServer interface {
	Clip(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ActiveBounds(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterEnvelopeServiceServer registers srv on s.
func RegisterEnvelopeServiceServer(s grpc.ServiceRegistrar, srv EnvelopeServiceServer) {
	s.RegisterService(&EnvelopeServiceDesc, srv)
}

// EnvelopeServiceDesc describes EnvelopeService for grpc.Server.
var EnvelopeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EnvelopeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Clip", Handler: clipHandler},
		{MethodName: "ActiveBounds", Handler: activeBoundsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "envelope/v1/envelope.proto",
}

func clipHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EnvelopeServiceServer).Clip(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: clipMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EnvelopeServiceServer).Clip(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func activeBoundsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EnvelopeServiceServer).ActiveBounds(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: activeBoundsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EnvelopeServiceServer).ActiveBounds(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion server-api

// #region client-api
// EnvelopeServiceClient is the client API for EnvelopeService.
type EnvelopeServiceClient interface {
	Clip(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ActiveBounds(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type envelopeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEnvelopeServiceClient returns a stub bound to cc.
func NewEnvelopeServiceClient(cc grpc.ClientConnInterface) EnvelopeServiceClient {
	return &envelopeServiceClient{cc: cc}
}

func (c *envelopeServiceClient) Clip(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, clipMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *envelopeServiceClient) ActiveBounds(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, activeBoundsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion client-api
