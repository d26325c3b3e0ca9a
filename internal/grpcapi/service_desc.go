// Package grpcapi exposes the short link service over gRPC using google.protobuf.Struct messages
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "shortlink.v1.ShortLinkService"

// Full method names
const (
	ShortenMethod = "/" + ServiceName + "/Shorten"
	ResolveMethod = "/" + ServiceName + "/Resolve"
)

// ShortLinkServer is the server API for ShortLinkService.
//
// Shorten takes {"url": string} and returns {"code", "short_url", "path", "status"}.
// Resolve takes {"code": string} and returns {"path"}.
type ShortLinkServer interface {
	Shorten(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Resolve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterShortLinkServer registers srv on s
func RegisterShortLinkServer(s grpc.ServiceRegistrar, srv ShortLinkServer) {
	s.RegisterService(&ShortLinkServiceDesc, srv)
}

func shortenHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShortLinkServer).Shorten(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ShortenMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ShortLinkServer).Shorten(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func resolveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShortLinkServer).Resolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ResolveMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ShortLinkServer).Resolve(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ShortLinkServiceDesc is the grpc.ServiceDesc for ShortLinkService
var ShortLinkServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ShortLinkServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Shorten",
			Handler:    shortenHandler,
		},
		{
			MethodName: "Resolve",
			Handler:    resolveHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shortlink/v1/shortlink.proto",
}
