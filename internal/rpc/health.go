// Package rpc serves the gRPC liveness and readiness check next to the HTTP
// API, using the standard grpc.health.v1 service.
package rpc

import (
	"context"

	"github.com/lendinghub/lending-service/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the name clients pass to Check for the lending API. An empty
// name asks about the server as a whole and gets the same answer.
const ServiceName = "lending.v1.Lending"

// ReadinessFunc reports whether the service's dependencies answer.
type ReadinessFunc func(ctx context.Context) error

// HealthServer answers grpc.health.v1 Check calls from a readiness probe.
type HealthServer struct {
	healthpb.UnimplementedHealthServer

	ready ReadinessFunc
}

func NewHealthServer(ready ReadinessFunc) *HealthServer {
	return &HealthServer{ready: ready}
}

func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if name := req.GetService(); name != "" && name != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", name)
	}
	if err := s.ready(ctx); err != nil {
		logger.Component("rpc").Warnf("health check: not serving: %v", err)
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

// NewServer returns a gRPC server with the health service registered.
func NewServer(ready ReadinessFunc, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, NewHealthServer(ready))
	return srv
}
