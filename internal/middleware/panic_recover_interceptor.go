// internal/middleware/panic_recover_interceptor.go

package middleware

import (
	"context"

	"github.com/hohotang/shortlink-core/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// PanicRecoveryInterceptor turns a panicking Shorten or Resolve call into codes.Internal.
// It must run inside LoggerInterceptor so the panic is logged with the call's url or code.
func PanicRecoveryInterceptor(baseLogger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			log := logger.FromContext(ctx)
			if log == nil {
				log = addRequestInfo(baseLogger, req)
			}
			reportPanic(ctx, log, "Panic recovered in gRPC handler", rec,
				zap.String("method", info.FullMethod),
			)

			resp, err = nil, status.Error(codes.Internal, "internal server error")
		}()

		return handler(ctx, req)
	}
}
