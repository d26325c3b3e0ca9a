// internal/middleware/logger_interceptor.go

package middleware

import (
	"context"
	"time"

	"github.com/hohotang/shortlink-core/internal/logger"
	"github.com/hohotang/shortlink-core/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// LoggerInterceptor creates a gRPC interceptor that injects a request-scoped logger
// into the context and logs request details
func LoggerInterceptor(baseLogger *zap.Logger, ids *utils.RequestIDGenerator) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		requestID := acceptRequestID(extractRequestID(ctx), ids)
		// Fails only outside a real server stream, e.g. when the interceptor is called directly
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))

		// Create a request-scoped logger with additional fields
		reqLogger := baseLogger.With(
			zap.String("requestID", requestID),
			zap.String("method", info.FullMethod),
		)
		reqLogger = addRequestInfo(reqLogger, req)

		startTime := time.Now()
		reqLogger.Debug("Processing request")

		ctx = withRequestID(logger.WithContext(ctx, reqLogger), requestID)
		resp, err := handler(ctx, req)

		duration := time.Since(startTime)
		code := status.Code(err)

		// Client-side codes are logged at warn
		switch code {
		case codes.OK:
			reqLogger.Info("Request completed",
				zap.String("status", code.String()),
				zap.Duration("duration", duration),
			)
		case codes.InvalidArgument, codes.NotFound, codes.Aborted:
			reqLogger.Warn("Request rejected",
				zap.Error(err),
				zap.String("status", code.String()),
				zap.Duration("duration", duration),
			)
		default:
			reqLogger.Error("Request failed",
				zap.Error(err),
				zap.String("status", code.String()),
				zap.Duration("duration", duration),
			)
		}

		return resp, err
	}
}

// extractRequestID gets the request ID from context metadata
func extractRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(requestIDMetadataKey); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// addRequestInfo adds the short link fields of a structpb request to the logger
func addRequestInfo(log *zap.Logger, req interface{}) *zap.Logger {
	typedReq, ok := req.(*structpb.Struct)
	if !ok {
		return log
	}

	fields := typedReq.GetFields()
	if v := fields["url"].GetStringValue(); v != "" {
		log = log.With(zap.String("url", v))
	}
	if v := fields["code"].GetStringValue(); v != "" {
		log = log.With(zap.String("code", v))
	}

	return log
}
