// Package logger holds the process-wide zap logger and the request-scoped
// logger carried through context.
package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Init builds the global logger. Development-like environments get a console
// encoder at debug level, everything else gets production JSON output.
func Init(service, env string) {
	var cfg zap.Config
	if isDevelopment(env) {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	l, err := cfg.Build(zap.Fields(
		zap.String("service", service),
		zap.String("env", env),
	))
	if err != nil {
		l = zap.NewExample()
		l.Warn("Falling back to example logger", zap.Error(err))
	}

	Set(l)
}

// Set replaces the global logger. Tests use it to install zaptest loggers.
func Set(l *zap.Logger) {
	mu.Lock()
	base = l
	mu.Unlock()
}

// L returns the global logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes any buffered log entries
func Sync() {
	_ = L().Sync()
}

// WithContext returns a copy of ctx carrying l
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger, or nil if none was injected
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return nil
}

// Ctx returns the request-scoped logger or the global one
func Ctx(ctx context.Context) *zap.Logger {
	if l := FromContext(ctx); l != nil {
		return l
	}
	return L()
}

func isDevelopment(env string) bool {
	switch strings.ToLower(env) {
	case "", "dev", "development", "local", "test":
		return true
	}
	return false
}
