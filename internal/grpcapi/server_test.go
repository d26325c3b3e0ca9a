package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/hohotang/shortlink-core/internal/clock"
	"github.com/hohotang/shortlink-core/internal/config"
	"github.com/hohotang/shortlink-core/internal/models"
	"github.com/hohotang/shortlink-core/internal/service"
	"github.com/hohotang/shortlink-core/internal/storage"
	"github.com/hohotang/shortlink-core/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const testBaseURL = "https://short.example/app"

// panickingService fails every call in a way the interceptors must contain
type panickingService struct{}

func (panickingService) Allocate(context.Context, string, string) (*models.Allocation, error) {
	panic("allocate exploded")
}

func (panickingService) Resolve(context.Context, string) (string, error) {
	return "", errors.New("unexpected")
}

// dial starts svc behind a real grpc.Server on an in-memory listener and returns a client connection
func dial(t *testing.T, svc ShortLinkService) *grpc.ClientConn {
	t.Helper()

	ids, err := utils.NewRequestIDGenerator(1)
	require.NoError(t, err)

	srv, err := NewServer(svc, testBaseURL)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	grpcServer := NewGRPCServer(zap.NewNop(), ids, false)
	RegisterShortLinkServer(grpcServer, srv)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func newMemoryService(t *testing.T) *service.URLService {
	t.Helper()
	store := storage.NewMemoryStorage(clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), 0)
	t.Cleanup(func() { _ = store.Close() })
	return service.NewURLService(store, config.ShortLinkConfig{KeyPrefix: "su:", CodeLength: 8, TTL: time.Hour})
}

func call(ctx context.Context, conn *grpc.ClientConn, method string, fields map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	return out, conn.Invoke(ctx, method, in, out, opts...)
}

func TestShortenResolve_RoundTrip(t *testing.T) {
	conn := dial(t, newMemoryService(t))
	ctx := context.Background()

	var header metadata.MD
	resp, err := call(ctx, conn, ShortenMethod, map[string]interface{}{"url": "https://short.example/foo?bar=1"}, grpc.Header(&header))
	require.NoError(t, err)

	fields := resp.AsMap()
	code, _ := fields["code"].(string)
	assert.Len(t, code, 8)
	assert.Equal(t, "/s/"+code, fields["short_url"])
	assert.Equal(t, "/foo?bar=1", fields["path"])
	assert.Equal(t, "created", fields["status"])
	assert.NotEmpty(t, header.Get("x-request-id"))

	again, err := call(ctx, conn, ShortenMethod, map[string]interface{}{"url": "/foo?bar=1"})
	require.NoError(t, err)
	assert.Equal(t, code, again.AsMap()["code"])
	assert.Equal(t, "reused", again.AsMap()["status"])

	resolved, err := call(ctx, conn, ResolveMethod, map[string]interface{}{"code": code})
	require.NoError(t, err)
	assert.Equal(t, "/foo?bar=1", resolved.AsMap()["path"])
}

func TestStatusCodes(t *testing.T) {
	conn := dial(t, newMemoryService(t))
	ctx := context.Background()

	tests := []struct {
		name    string
		method  string
		fields  map[string]interface{}
		want    codes.Code
		message string
	}{
		{"Missing url", ShortenMethod, map[string]interface{}{}, codes.InvalidArgument, "url is required"},
		{"Cross origin", ShortenMethod, map[string]interface{}{"url": "http://short.example/x"}, codes.InvalidArgument, "only same-origin URLs are allowed"},
		{"Unknown code", ResolveMethod, map[string]interface{}{"code": "doesnotexist"}, codes.NotFound, ""},
		{"Missing code", ResolveMethod, map[string]interface{}{}, codes.NotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(ctx, conn, tt.method, tt.fields)
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, st.Code())
			if tt.message != "" {
				assert.Equal(t, tt.message, st.Message())
			}
		})
	}
}

func TestPanicsBecomeInternal(t *testing.T) {
	conn := dial(t, panickingService{})

	_, err := call(context.Background(), conn, ShortenMethod, map[string]interface{}{"url": "/x"})
	assert.Equal(t, codes.Internal, status.Code(err))

	_, err = call(context.Background(), conn, ResolveMethod, map[string]interface{}{"code": "abc"})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{service.ErrURLRequired, codes.InvalidArgument},
		{service.ErrCrossOrigin, codes.InvalidArgument},
		{service.ErrAllocationExhausted, codes.Aborted},
		{service.ErrNotFound, codes.NotFound},
		{fmt.Errorf("%w: ping: %w", service.ErrStoreUnavailable, errors.New("eof")), codes.Unavailable},
		{errors.New("other"), codes.Internal},
	}

	for _, tt := range tests {
		if got := status.Code(toStatus(tt.err)); got != tt.want {
			t.Errorf("toStatus(%v) = %s, expected %s", tt.err, got, tt.want)
		}
	}
}

func TestNewServer_InvalidBaseURL(t *testing.T) {
	_, err := NewServer(newMemoryService(t), "localhost:8080")
	assert.Error(t, err)
}
