package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// GRPCHealth implements grpc.health.v1.Health on top of the readiness probe.
type GRPCHealth struct {
	healthpb.UnimplementedHealthServer

	readiness readinessChecker
	timeout   time.Duration
}

// NewGRPCHealth creates the gRPC health service.
func NewGRPCHealth(r readinessChecker) *GRPCHealth {
	if r == nil {
		r = ReadyProbe{}
	}
	return &GRPCHealth{readiness: r, timeout: 2 * time.Second}
}

// NewGRPCServer returns a server with the health service registered.
func NewGRPCServer(r readinessChecker, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, NewGRPCHealth(r))
	return srv
}

// Check reports SERVING when ready. The empty service name and this
// service's name are known; anything else is NotFound.
func (s *GRPCHealth) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != serviceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.readiness.Check(ctx); err != nil {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
