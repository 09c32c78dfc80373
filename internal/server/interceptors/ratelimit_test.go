package interceptors

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2)
	l.nowF = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Error("third call in the same instant should be denied")
	}
	if !l.Allow("b") {
		t.Error("other caller has its own bucket")
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Error("token should refill after one second")
	}
}

func TestRateLimiter_EvictsIdleCallers(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 1)
	l.nowF = func() time.Time { return now }
	l.Allow("a")
	now = now.Add(limiterIdleTTL + time.Second)
	l.Allow("b")
	if _, ok := l.callers["a"]; ok {
		t.Error("idle caller should be evicted")
	}
}

func TestRateLimitUnary_KeysByUserThenIP(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	interceptor := RateLimitUnary(l)
	info := &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"}

	if _, err := interceptor(signedIn("user-1"), "req", info, okHandler); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err := interceptor(signedIn("user-1"), "req", info, okHandler)
	if status.Code(err) != codes.ResourceExhausted {
		t.Errorf("code = %v, want ResourceExhausted", status.Code(err))
	}

	anon := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "10.0.0.1"))
	if _, err := interceptor(anon, "req", info, okHandler); err != nil {
		t.Errorf("anonymous caller has its own bucket: %v", err)
	}
}

func TestRateLimitUnary_NilLimiter(t *testing.T) {
	if _, err := RateLimitUnary(nil)(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
}
