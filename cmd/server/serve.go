package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hohotang/shortlink-core/internal/config"
	"github.com/hohotang/shortlink-core/internal/grpcapi"
	"github.com/hohotang/shortlink-core/internal/handler"
	"github.com/hohotang/shortlink-core/internal/logger"
	"github.com/hohotang/shortlink-core/internal/otel"
	"github.com/hohotang/shortlink-core/internal/service"
	"github.com/hohotang/shortlink-core/internal/storage"
	"github.com/hohotang/shortlink-core/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	serviceName    = "shortlink-core"
	serviceVersion = "1.0.0"

	// startupTimeout bounds the initial store connection
	startupTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Init(serviceName, cfg.Telemetry.Environment)
	defer logger.Sync()

	log := logger.L()

	// Initialize OpenTelemetry if enabled
	if cfg.Telemetry.Enabled {
		log.Info("Initializing OpenTelemetry",
			zap.String("endpoint", cfg.Telemetry.OTLPEndpoint))

		shutdown, err := otel.Init(otel.Config{
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: serviceVersion,
			Environment:    cfg.Telemetry.Environment,
			MetricInterval: cfg.Telemetry.MetricInterval,
		})
		if err != nil {
			log.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Warn("Error shutting down OpenTelemetry", zap.Error(err))
				}
			}()
		}
	}

	// Connect the store before accepting traffic
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	store, err := storage.New(startCtx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Type, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Error closing storage", zap.Error(err))
		}
	}()
	log.Info("Storage ready", zap.String("type", cfg.Storage.Type.String()))

	urlService := service.NewURLService(store, cfg.ShortLink)

	ids, err := utils.NewRequestIDGenerator(cfg.Snowflake.MachineID)
	if err != nil {
		return fmt.Errorf("failed to initialize request ID generator: %w", err)
	}

	errCh := make(chan error, 2)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           handler.NewRouter(handler.New(urlService, cfg.Storage.Type, cfg.Server.TrustForwardedProto), log, ids),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Starting HTTP server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.Server.GRPCPort > 0 {
		grpcServer, err = startGRPC(cfg, urlService, ids, errCh)
		if err != nil {
			_ = httpServer.Close()
			return err
		}
	}

	// Wait for interrupt signal or a server failure
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err = <-errCh:
		log.Error("Server failed, shutting down", zap.Error(err))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("HTTP server shutdown incomplete", zap.Error(shutdownErr))
	}
	if grpcServer != nil {
		stopGRPC(shutdownCtx, grpcServer)
	}

	log.Info("Server stopped")
	return err
}

func startGRPC(cfg *config.Config, svc *service.URLService, ids *utils.RequestIDGenerator, errCh chan<- error) (*grpc.Server, error) {
	log := logger.L()

	srv, err := grpcapi.NewServer(svc, cfg.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server.base_url: %w", err)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpcapi.NewGRPCServer(log, ids, cfg.Telemetry.Enabled)
	grpcapi.RegisterShortLinkServer(grpcServer, srv)

	go func() {
		log.Info("Starting gRPC server", zap.Int("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	return grpcServer, nil
}

// stopGRPC drains in-flight calls, forcing a stop when ctx expires first
func stopGRPC(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
	}
}
