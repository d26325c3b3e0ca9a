package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// reportPanic logs a recovered panic and marks the span active in ctx as failed
func reportPanic(ctx context.Context, log *zap.Logger, msg string, rec interface{}, fields ...zap.Field) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(fmt.Errorf("panic: %v", rec))
	span.SetStatus(codes.Error, "panic")

	fields = append(fields,
		zap.Any("panic", rec),
		zap.String("requestID", RequestIDFromContext(ctx)),
		zap.String("stack", string(debug.Stack())),
	)
	log.Error(msg, fields...)
}
