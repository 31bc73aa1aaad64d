package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

type mockCache struct {
	err error
}

func (m *mockCache) Ping(context.Context) error { return m.err }

func TestCheck_NoDependencies(t *testing.T) {
	srv := NewServer(nil, nil, nil, "storefront")
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}
}

func TestCheck_Dependencies(t *testing.T) {
	testCases := []struct {
		name   string
		pinger Pinger
		policy PolicyChecker
		cache  CachePinger
		want   healthpb.HealthCheckResponse_ServingStatus
	}{
		{"all healthy", &mockPinger{}, &mockPolicyChecker{}, &mockCache{}, healthpb.HealthCheckResponse_SERVING},
		{"database down", &mockPinger{pingErr: errors.New("connection refused")}, nil, nil, healthpb.HealthCheckResponse_NOT_SERVING},
		{"policy broken", &mockPinger{}, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}, nil, healthpb.HealthCheckResponse_NOT_SERVING},
		{"cache down", nil, nil, &mockCache{err: errors.New("dial tcp")}, healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := NewServer(tc.pinger, tc.policy, tc.cache, "storefront")
			resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "storefront"})
			if err != nil {
				t.Fatalf("Check must not return an RPC error on dependency failure: %v", err)
			}
			if resp.GetStatus() != tc.want {
				t.Errorf("status = %v, want %v", resp.GetStatus(), tc.want)
			}
		})
	}
}

func TestCheck_UnknownService(t *testing.T) {
	srv := NewServer(nil, nil, nil, "storefront")
	_, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "billing"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("code = %v, want NotFound", status.Code(err))
	}
}

func TestReadiness_HTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServer(&mockPinger{pingErr: errors.New("down")}, &mockPolicyChecker{}, nil, "storefront")
	r := gin.New()
	r.GET("/healthz", srv.Live)
	r.GET("/readyz", srv.Readiness)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d, want 503", w.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Checks["database"] != "unavailable" || body.Checks["policy"] != "ok" {
		t.Errorf("checks = %v", body.Checks)
	}
}
