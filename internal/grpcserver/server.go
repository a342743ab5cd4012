// Package grpcserver exposes the standard gRPC health service backed by the
// HTTP health checker.
package grpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"novel-forge/backend/pkg/health"
	"novel-forge/backend/pkg/logger"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ChatService is the service name reported alongside the overall status.
const ChatService = "novelforge.chat"

type Server struct {
	grpc    *grpc.Server
	health  *grpchealth.Server
	checker *health.Checker
	log     *logger.Logger
}

func New(checker *health.Checker, log *logger.Logger) *Server {
	s := &Server{
		grpc:    grpc.NewServer(),
		health:  grpchealth.NewServer(),
		checker: checker,
		log:     log,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.Sync()
	return s
}

// Sync copies the checker's verdict into the gRPC health status.
func (s *Server) Sync() {
	status := healthpb.HealthCheckResponse_SERVING
	if !s.checker.IsSystemHealthy() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ChatService, status)
}

// Run keeps the status in sync until ctx is done.
func (s *Server) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sync()
		}
	}
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("gRPC server listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop marks every service as not serving and drains connections.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
