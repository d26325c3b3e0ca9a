package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hohotang/shortlink-core/internal/config"
	"github.com/hohotang/shortlink-core/internal/logger"
	"github.com/hohotang/shortlink-core/internal/models"
	"github.com/hohotang/shortlink-core/internal/storage"
	"github.com/hohotang/shortlink-core/internal/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MaxAllocationAttempts bounds how many fresh codes Allocate tries before giving up
const MaxAllocationAttempts = 8

// Allocation outcomes recorded on shortlink.allocations besides the models statuses
const (
	statusInvalid   = "invalid"
	statusExhausted = "exhausted"
	statusError     = "error"
)

// URLService allocates short codes for same-origin paths and resolves them back
type URLService struct {
	store      storage.KVStore
	keys       models.KeyLayout
	ttl        time.Duration
	codeLength int
	newCode    utils.CodeFunc
	tracer     trace.Tracer
	metrics    *serviceMetrics
}

// Option customizes a URLService
type Option func(*URLService)

// WithCodeFunc replaces the random code generator
func WithCodeFunc(f utils.CodeFunc) Option {
	return func(s *URLService) {
		s.newCode = f
	}
}

// WithTracerProvider records spans on tp instead of the global provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *URLService) {
		s.tracer = tp.Tracer(instrumentationName)
	}
}

// WithMeterProvider records counters on mp instead of the global provider
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *URLService) {
		s.metrics = newServiceMetrics(mp.Meter(instrumentationName))
	}
}

// NewURLService creates a new URLService on top of store
func NewURLService(store storage.KVStore, cfg config.ShortLinkConfig, opts ...Option) *URLService {
	s := &URLService{
		store:      store,
		keys:       models.NewKeyLayout(cfg.KeyPrefix),
		ttl:        cfg.TTL,
		codeLength: cfg.CodeLength,
		newCode:    utils.NewCode,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.tracer == nil {
		s.tracer = otel.Tracer(instrumentationName)
	}
	if s.metrics == nil {
		s.metrics = newServiceMetrics(otel.Meter(instrumentationName))
	}

	return s
}

// Allocate returns the code for target, reusing a live one for the same path or minting a new one.
// origin is the caller's scheme://host; target must be root-relative or on that origin.
func (s *URLService) Allocate(ctx context.Context, target, origin string) (*models.Allocation, error) {
	ctx, span := s.tracer.Start(ctx, "URLService.Allocate")
	defer span.End()
	log := logger.Ctx(ctx)

	target = strings.TrimSpace(target)
	if target == "" {
		s.metrics.allocation(ctx, statusInvalid)
		return nil, ErrURLRequired
	}
	if !utils.SameOrigin(origin, target) {
		s.metrics.allocation(ctx, statusInvalid)
		log.Debug("Rejected cross-origin target", zap.String("target", target), zap.String("origin", origin))
		return nil, ErrCrossOrigin
	}

	path := utils.NormalizePath(target)
	span.SetAttributes(attribute.String("shortlink.path", path))

	code, err := s.reuse(ctx, path)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	if code != "" {
		s.metrics.allocation(ctx, models.StatusReused.String())
		span.SetAttributes(attribute.String("shortlink.code", code), attribute.Bool("shortlink.reused", true))
		log.Debug("Reused short code", zap.String("code", code), zap.String("path", path))
		return &models.Allocation{Code: code, Path: path, Status: models.StatusReused}, nil
	}

	for attempt := 1; attempt <= MaxAllocationAttempts; attempt++ {
		code, err := s.newCode(s.codeLength)
		if err != nil {
			return nil, s.fail(ctx, span, fmt.Errorf("failed to generate short code: %w", err))
		}

		stored, err := s.store.SetNX(ctx, s.keys.Forward(code), path, s.ttl)
		if err != nil {
			return nil, s.fail(ctx, span, storeError("set forward mapping", err))
		}
		if !stored {
			s.metrics.collision(ctx)
			log.Debug("Short code collision", zap.String("code", code), zap.Int("attempt", attempt))
			continue
		}

		// A failure here leaves an orphan forward entry that expires with its ttl
		if err := s.store.Set(ctx, s.keys.Reverse(path), code, s.ttl); err != nil {
			return nil, s.fail(ctx, span, storeError("set reverse mapping", err))
		}

		s.metrics.allocation(ctx, models.StatusCreated.String())
		span.SetAttributes(attribute.String("shortlink.code", code), attribute.Int("shortlink.attempts", attempt))
		log.Info("Allocated short code", zap.String("code", code), zap.String("path", path))
		return &models.Allocation{Code: code, Path: path, Status: models.StatusCreated}, nil
	}

	s.metrics.allocation(ctx, statusExhausted)
	span.SetStatus(codes.Error, ErrAllocationExhausted.Error())
	log.Warn("Short code allocation exhausted", zap.String("path", path), zap.Int("attempts", MaxAllocationAttempts))
	return nil, ErrAllocationExhausted
}

// reuse returns the live code already assigned to path, refreshing both mappings, or "" when there is none
func (s *URLService) reuse(ctx context.Context, path string) (string, error) {
	reverseKey := s.keys.Reverse(path)

	code, err := s.store.Get(ctx, reverseKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storeError("get reverse mapping", err)
	}

	forwardKey := s.keys.Forward(code)
	current, err := s.store.Get(ctx, forwardKey)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Ctx(ctx).Debug("Stale reverse mapping", zap.String("code", code), zap.String("path", path))
		return "", nil
	}
	if err != nil {
		return "", storeError("get forward mapping", err)
	}
	// The code expired and was handed to another path in the meantime
	if current != path {
		return "", nil
	}

	refreshed, err := s.store.Expire(ctx, forwardKey, s.ttl)
	if err != nil {
		return "", storeError("refresh forward mapping", err)
	}
	if !refreshed {
		return "", nil
	}
	if _, err := s.store.Expire(ctx, reverseKey, s.ttl); err != nil {
		return "", storeError("refresh reverse mapping", err)
	}

	return code, nil
}

// Resolve returns the path stored for code and slides its expiry
func (s *URLService) Resolve(ctx context.Context, code string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "URLService.Resolve", trace.WithAttributes(attribute.String("shortlink.code", code)))
	defer span.End()
	log := logger.Ctx(ctx)

	if !utils.IsBase62(code) {
		s.metrics.resolution(ctx, resultNotFound)
		return "", ErrNotFound
	}

	forwardKey := s.keys.Forward(code)
	path, err := s.store.Get(ctx, forwardKey)
	if errors.Is(err, storage.ErrNotFound) {
		s.metrics.resolution(ctx, resultNotFound)
		log.Debug("Short code not found", zap.String("code", code))
		return "", ErrNotFound
	}
	if err != nil {
		s.metrics.resolution(ctx, resultError)
		err = storeError("get forward mapping", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Failed to resolve short code", zap.String("code", code), zap.Error(err))
		return "", err
	}

	// The lookup already succeeded, so a failed refresh only shortens the link's life
	if _, err := s.store.Expire(ctx, forwardKey, s.ttl); err != nil {
		log.Warn("Failed to refresh short code TTL", zap.String("code", code), zap.Error(err))
	}

	s.metrics.resolution(ctx, resultHit)
	return path, nil
}

// fail records err on span and the error counter
func (s *URLService) fail(ctx context.Context, span trace.Span, err error) error {
	s.metrics.allocation(ctx, statusError)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Ctx(ctx).Error("Failed to allocate short code", zap.Error(err))
	return err
}

// Ping reports whether the backing store is reachable
func (s *URLService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return storeError("ping", err)
	}
	return nil
}
