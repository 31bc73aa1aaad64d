package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthhandler "storefront/backend/internal/health/handler"
	"storefront/backend/internal/server/interceptors"
)

// GRPCOptions configures the gRPC server.
type GRPCOptions struct {
	// Health answers grpc.health.v1.Health. Required.
	Health *healthhandler.Server
	// Reflection registers the reflection service; enable outside production only.
	Reflection bool
}

// quietMethods are not logged per call; load balancers probe them constantly.
var quietMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
}

// NewGRPCServer returns a server with tracing, panic recovery and request logging installed and every
// service registered.
//
// Service → handler mapping:
//   - grpc.health.v1.Health → internal/health/handler
func NewGRPCServer(log *zap.Logger, opts GRPCOptions) *grpc.Server {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryUnary(log),
			interceptors.LoggingUnary(log, quietMethods),
		),
	)
	RegisterServices(s, opts)
	return s
}

// RegisterServices registers all gRPC services with the given registrar.
func RegisterServices(s *grpc.Server, opts GRPCOptions) {
	healthpb.RegisterHealthServer(s, opts.Health)
	if opts.Reflection {
		reflection.Register(s)
	}
}
