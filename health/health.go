// Package health serves the standard gRPC health protocol, reporting
// whether the backing store is reachable.
package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name reported alongside the server
// wide ("") status.
const ServiceName = "eventreg"

// Options configures the health server.
type Options struct {
	// Interval between store pings.
	Interval time.Duration
	// CertFile and KeyFile enable TLS when both are set.
	CertFile string
	KeyFile  string
}

// Server is a gRPC server carrying only the health service.
type Server struct {
	grpcServer *grpc.Server
	hs         *health.Server
	ping       func(context.Context) error
	interval   time.Duration
	log        *zap.Logger
}

// NewServer builds the server. ping is called every Interval.
func NewServer(ping func(context.Context) error, opts Options, log *zap.Logger) (*Server, error) {
	serverOpts := []grpc.ServerOption{
		grpc.UnaryInterceptor(logRequests(log)),
	}

	if opts.CertFile != "" && opts.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load key pair: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewServerTLSFromCert(&cert)))
	}

	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}

	grpcServer := grpc.NewServer(serverOpts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	// unknown until the first ping
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		grpcServer: grpcServer,
		hs:         hs,
		ping:       ping,
		interval:   opts.Interval,
		log:        log,
	}, nil
}

// Check pings the store once and publishes the result.
func (s *Server) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := s.ping(ctx); err != nil {
		s.log.Warn("store ping failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.hs.SetServingStatus("", st)
	s.hs.SetServingStatus(ServiceName, st)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.Check(ctx)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.hs.Shutdown()
				s.grpcServer.GracefulStop()
				return
			case <-ticker.C:
				s.Check(ctx)
			}
		}
	}()

	s.log.Info("grpc health server listening", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

func logRequests(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("grpc request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)))
		return resp, err
	}
}
