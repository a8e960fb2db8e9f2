// Package grpchealth serves the standard gRPC health protocol, reporting
// SERVING once the parse models are loaded.
package grpchealth

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name reported for the parse service.
const Service = "stanford.parse"

// Readiness reports whether the service can answer parse requests.
type Readiness interface {
	Ready() bool
}

// Server is a gRPC server carrying only the health service.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	ready  Readiness
	logger *zap.Logger
}

func New(ready Readiness, logger *zap.Logger) *Server {
	s := &Server{
		srv:    grpc.NewServer(),
		health: health.NewServer(),
		ready:  ready,
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	s.update()
	return s
}

func (s *Server) update() healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.ready.Ready() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
	return status
}

// Watch refreshes the serving status every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := s.update()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if status := s.update(); status != last {
				s.logger.Info("grpc health status changed", zap.Stringer("status", status))
				last = status
			}
		}
	}
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

// Stop marks the service as shutting down and stops the server gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
