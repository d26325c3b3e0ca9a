package middleware

import (
	"context"
	"net/http"

	"github.com/hohotang/shortlink-core/internal/utils"
)

const (
	// RequestIDHeader carries the request ID on HTTP requests and responses
	RequestIDHeader = "X-Request-ID"

	// requestIDMetadataKey carries the request ID in gRPC metadata
	requestIDMetadataKey = "x-request-id"

	// maxRequestIDLength caps caller-supplied IDs before they reach the logs
	maxRequestIDLength = 128
)

type requestIDKey struct{}

// RequestIDFromContext returns the request ID stored by RequestID, or "" if there is none
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// acceptRequestID returns the caller's ID when usable, otherwise a fresh snowflake ID
func acceptRequestID(id string, ids *utils.RequestIDGenerator) string {
	if id != "" && len(id) <= maxRequestIDLength {
		return id
	}
	return ids.Next()
}

// RequestID returns a middleware that tags every request with an ID, reusing the
// caller's X-Request-ID when present, and echoes it on the response.
func RequestID(ids *utils.RequestIDGenerator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := acceptRequestID(r.Header.Get(RequestIDHeader), ids)
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
		})
	}
}
