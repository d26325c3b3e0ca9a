// internal/middleware/chain.go

package middleware

import (
	"context"

	"google.golang.org/grpc"
)

// ChainUnaryInterceptors creates a single interceptor from multiple interceptors.
// The first interceptor will be the outer-most, while the last interceptor will
// be the inner-most wrapper around the real call.
func ChainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	if len(interceptors) == 1 {
		return interceptors[0]
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		return chainHandler(interceptors, info, handler)(ctx, req)
	}
}

// chainHandler wraps final with interceptors, building each link only when the previous one calls it
func chainHandler(interceptors []grpc.UnaryServerInterceptor, info *grpc.UnaryServerInfo, final grpc.UnaryHandler) grpc.UnaryHandler {
	if len(interceptors) == 0 {
		return final
	}
	return func(ctx context.Context, req interface{}) (interface{}, error) {
		return interceptors[0](ctx, req, info, chainHandler(interceptors[1:], info, final))
	}
}
