package interceptors

import (
	"context"
	"net"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func TestLoggingUnary_LogsRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	interceptor := LoggingUnary(zap.New(core), nil)

	_, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
		func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if logs.Len() != 1 {
		t.Fatalf("logs = %d, want 1", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if fields["method"] != "/grpc.health.v1.Health/Check" || fields["code"] != "OK" {
		t.Errorf("fields = %v", fields)
	}
}

func TestLoggingUnary_SkipMethod(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	interceptor := LoggingUnary(zap.New(core), map[string]bool{"/grpc.health.v1.Health/Check": true})

	_, _ = interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
		func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil })
	if logs.Len() != 0 {
		t.Errorf("logs = %d, want 0 for skipped method", logs.Len())
	}
}

func TestLoggingUnary_PassesErrorThrough(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	interceptor := LoggingUnary(zap.New(core), nil)
	want := status.Error(codes.Internal, "boom")

	_, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"},
		func(ctx context.Context, req interface{}) (interface{}, error) { return nil, want })
	if err != want {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if logs.FilterMessage("grpc request failed").Len() != 1 {
		t.Error("expected an error-level entry for codes.Internal")
	}
}

func TestRecoveryUnary(t *testing.T) {
	interceptor := RecoveryUnary(nil)
	_, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"},
		func(ctx context.Context, req interface{}) (interface{}, error) { panic("nil map") })
	if status.Code(err) != codes.Internal {
		t.Errorf("code = %v, want Internal", status.Code(err))
	}
}

func TestClientIP(t *testing.T) {
	testCases := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"forwarded chain", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "203.0.113.7, 10.0.0.1")), "203.0.113.7"},
		{"real ip", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "198.51.100.2")), "198.51.100.2"},
		{"peer", peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.1"), Port: 5000}}), "192.0.2.1"},
		{"none", context.Background(), "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClientIP(tc.ctx); got != tc.want {
				t.Errorf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}
