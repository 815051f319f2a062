// Package app holds the startup and shutdown sequence the service binaries share.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"healthcare-services/internal/config"
	"healthcare-services/internal/health"
	"healthcare-services/internal/middleware"
	"healthcare-services/internal/store"
	"healthcare-services/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

// OpenStore connects to Postgres, pings it and applies migrations when
// MigrateOnStart is set. The caller closes the returned pool.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, *store.Store, error) {
	if cfg.MigrateOnStart {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		logger.Info("migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	logger.Info("connected to postgres")
	return pool, store.New(pool), nil
}

// Serve runs the HTTP server, and the gRPC health server when GRPCPort is set,
// until ctx is cancelled. It then drains both.
func Serve(ctx context.Context, cfg *config.Config, service string, h http.Handler, db health.Pinger, rl *middleware.RateLimiter, logger *logging.Logger) error {
	errCh := make(chan error, 2)

	var hs *health.Server
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		hs = health.NewServer(service, db, rl, logger)
		go hs.Watch(ctx, 0)
		go func() {
			logger.Info("grpc health listening", "port", cfg.GRPCPort)
			if err := hs.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", "port", cfg.Port, "service", service)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down", "service", service)
	case runErr = <-errCh:
		logger.Error("server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if hs != nil {
		hs.GracefulStop()
	}
	return runErr
}
