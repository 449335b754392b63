package duelserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// NewGRPCServer builds a grpc.Server serving srv plus the standard health
// service, instrumented with OpenTelemetry.
func NewGRPCServer(srv DuelServiceServer) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	RegisterDuelServiceServer(gs, srv)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return gs, hs
}

// Service runs a grpc.Server as a server.Service.
type Service struct {
	grpc            *grpc.Server
	health          *health.Server
	addr            string
	shutdownTimeout time.Duration
	logger          *zap.Logger

	mu  sync.Mutex
	lis net.Listener
}

// NewService creates a Service listening on addr once started.
//
// Precondition: gs, hs and logger must be non-nil.
func NewService(gs *grpc.Server, hs *health.Server, addr string, shutdownTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{grpc: gs, health: hs, addr: addr, shutdownTimeout: shutdownTimeout, logger: logger}
}

// Start listens and serves until Stop is called.
func (s *Service) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()

	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Addr returns the bound address, or "" before Start has listened.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// Stop drains in-flight calls, forcing a stop after the shutdown timeout.
func (s *Service) Stop() {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		<-done
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("graceful stop timed out; forcing", zap.Duration("timeout", timeout))
		s.grpc.Stop()
		<-done
	}
}
