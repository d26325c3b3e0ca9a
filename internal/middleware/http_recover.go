package middleware

import (
	"net/http"

	"github.com/hohotang/shortlink-core/internal/logger"
	"go.uber.org/zap"
)

// Recoverer returns a middleware that turns handler panics into a 500 JSON response
func Recoverer(baseLogger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// net/http relies on this panic to abort the response
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log := logger.FromContext(r.Context())
				if log == nil {
					log = baseLogger
				}
				reportPanic(r.Context(), log, "Panic recovered in HTTP handler", rec,
					zap.String("method", r.Method),
					zap.String("uri", r.RequestURI),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
