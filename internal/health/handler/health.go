// Package handler serves liveness and readiness over HTTP and the standard gRPC health protocol.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const checkTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is satisfied by the OPA admin authorizer.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// CachePinger is satisfied by the Redis resolution cache.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Server answers readiness from the database, the admin policy and the shared cache.
// Any nil dependency is skipped.
type Server struct {
	healthpb.UnimplementedHealthServer

	pinger  Pinger
	policy  PolicyChecker
	cache   CachePinger
	service string
}

// NewServer returns a health server. service is the gRPC service name answered besides "".
func NewServer(pinger Pinger, policy PolicyChecker, cache CachePinger, service string) *Server {
	return &Server{pinger: pinger, policy: policy, cache: cache, service: service}
}

// Ready runs every configured check and returns a per-dependency result plus whether all passed.
func (s *Server) Ready(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	results := map[string]string{}
	ok := true
	run := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			results[name] = "unavailable"
			ok = false
			return
		}
		results[name] = "ok"
	}
	if s.pinger != nil {
		run("database", s.pinger.PingContext)
	}
	if s.policy != nil {
		run("policy", s.policy.HealthCheck)
	}
	if s.cache != nil {
		run("cache", s.cache.Ping)
	}
	return results, ok
}

// Check implements grpc.health.v1.Health. Failed dependencies map to NOT_SERVING, never an RPC error.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if name := req.GetService(); name != "" && name != s.service {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", name)
	}
	if _, ok := s.Ready(ctx); !ok {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

// Live handles GET /healthz.
func (s *Server) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz.
func (s *Server) Readiness(c *gin.Context) {
	checks, ok := s.Ready(c.Request.Context())
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}
