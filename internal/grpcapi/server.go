package grpcapi

import (
	"context"
	"errors"

	"github.com/hohotang/shortlink-core/internal/middleware"
	"github.com/hohotang/shortlink-core/internal/models"
	"github.com/hohotang/shortlink-core/internal/otel"
	"github.com/hohotang/shortlink-core/internal/service"
	"github.com/hohotang/shortlink-core/internal/utils"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ShortLinkService is the part of service.URLService the gRPC server uses
type ShortLinkService interface {
	Allocate(ctx context.Context, target, origin string) (*models.Allocation, error)
	Resolve(ctx context.Context, code string) (string, error)
}

// Server implements ShortLinkServer. gRPC callers have no browser origin, so targets are
// checked against the origin of the configured base URL.
type Server struct {
	service ShortLinkService
	origin  string
}

// NewServer creates a Server for the site at baseURL
func NewServer(svc ShortLinkService, baseURL string) (*Server, error) {
	origin, err := utils.OriginOf(baseURL)
	if err != nil {
		return nil, err
	}
	return &Server{service: svc, origin: origin}, nil
}

// NewGRPCServer builds a grpc.Server with the recovery and logging interceptors and, when
// tracing is enabled, the OpenTelemetry stats handler.
func NewGRPCServer(log *zap.Logger, ids *utils.RequestIDGenerator, tracing bool) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(middleware.ChainUnaryInterceptors(
			middleware.LoggerInterceptor(log, ids),
			middleware.PanicRecoveryInterceptor(log),
		)),
	}

	if tracing {
		opts = append(opts, grpc.StatsHandler(otelgrpc.NewServerHandler(
			otelgrpc.WithPropagators(otel.Propagator()),
		)))
	}

	return grpc.NewServer(opts...)
}

// Shorten implements ShortLinkServer.Shorten
func (s *Server) Shorten(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	target := req.GetFields()["url"].GetStringValue()

	alloc, err := s.service.Allocate(ctx, target, s.origin)
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"code":      alloc.Code,
		"short_url": models.ShortURL(alloc.Code),
		"path":      alloc.Path,
		"status":    alloc.Status.String(),
	})
}

// Resolve implements ShortLinkServer.Resolve
func (s *Server) Resolve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	code := req.GetFields()["code"].GetStringValue()

	path, err := s.service.Resolve(ctx, code)
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]interface{}{"path": path})
}

// toStatus maps service errors onto gRPC status codes
func toStatus(err error) error {
	if ve, ok := service.IsValidation(err); ok {
		return status.Error(codes.InvalidArgument, ve.Reason)
	}

	switch {
	case errors.Is(err, service.ErrAllocationExhausted):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, service.ErrStoreUnavailable.Error())
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
