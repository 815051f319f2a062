// Package health serves grpc.health.v1 for a service, reporting SERVING while
// its database answers pings.
package health

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"healthcare-services/internal/middleware"
	"healthcare-services/pkg/logging"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	grpc    *grpc.Server
	health  *health.Server
	pinger  Pinger
	service string
	logger  *logging.Logger
}

// NewServer builds the gRPC server. service is the name reported alongside the
// overall ("") status. rl may be nil to disable rate limiting.
func NewServer(service string, pinger Pinger, rl *middleware.RateLimiter, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	interceptors := []grpc.UnaryServerInterceptor{middleware.UnaryLogger(logger)}
	if rl != nil {
		interceptors = append(interceptors, middleware.UnaryRateLimit(rl))
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	s := &Server{grpc: srv, health: hs, pinger: pinger, service: service, logger: logger}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Check pings the database once and publishes the result.
func (s *Server) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.pinger.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "service", s.service, "error", err)
		s.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.set(healthpb.HealthCheckResponse_SERVING)
}

// Watch runs Check immediately and then every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	s.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Check(ctx)
		}
	}
}

func (s *Server) set(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(s.service, st)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop marks the service as not serving and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
