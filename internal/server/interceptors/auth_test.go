package interceptors

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"poolfi/backend/internal/security"
)

const (
	publicMethod     = "/test.Service/PublicMethod"
	protectedMethod  = "/test.Service/ProtectedMethod"
	credentialMethod = "/test.Service/Login"
)

func issueTestToken(t *testing.T, tokens *security.SessionTokens) string {
	t.Helper()
	token, _, err := tokens.Issue(security.Claims{Subject: "user-1", Email: "a@x.com", Pseudonym: "ada"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

// runAuth runs the interceptor and returns the claims the handler saw (nil when none).
func runAuth(t *testing.T, ctx context.Context, method string) (*security.Claims, error) {
	t.Helper()
	interceptor := AuthUnary(security.NewTestSessionTokens(),
		map[string]bool{publicMethod: true, credentialMethod: true},
		map[string]bool{credentialMethod: true})
	var seen *security.Claims
	_, err := interceptor(ctx, "request", &grpc.UnaryServerInfo{FullMethod: method}, func(ctx context.Context, req interface{}) (interface{}, error) {
		seen, _ = GetClaims(ctx)
		return "success", nil
	})
	return seen, err
}

func TestAuthUnary_PublicMethodWithoutToken(t *testing.T) {
	claims, err := runAuth(t, context.Background(), publicMethod)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if claims != nil {
		t.Errorf("claims = %+v, want none", claims)
	}
}

func TestAuthUnary_PublicMethodWithTokenSetsClaims(t *testing.T) {
	token := issueTestToken(t, security.NewTestSessionTokens())
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))

	claims, err := runAuth(t, ctx, publicMethod)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if claims == nil || claims.Subject != "user-1" {
		t.Errorf("claims = %+v, want subject user-1", claims)
	}
}

func TestAuthUnary_PublicMethodRejectsBadToken(t *testing.T) {
	expired, _, err := security.NewTestSessionTokensAt(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}).Issue(security.Claims{Subject: "user-1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	valid := issueTestToken(t, security.NewTestSessionTokens())
	tampered := valid[:len(valid)-1] + "0"
	if tampered == valid {
		tampered = valid[:len(valid)-1] + "1"
	}

	cases := []struct {
		name string
		md   metadata.MD
	}{
		{"malformed bearer", metadata.Pairs("authorization", "Bearer garbage.token")},
		{"tampered signature", metadata.Pairs("authorization", "Bearer tampered.deadbeef")},
		{"flipped signature digit", metadata.Pairs("authorization", "Bearer "+tampered)},
		{"expired", metadata.Pairs("authorization", "Bearer "+expired)},
		{"bad cookie", metadata.Pairs("cookie", SessionCookieName+"=abc.def")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), tc.md)
			claims, err := runAuth(t, ctx, publicMethod)
			if status.Code(err) != codes.Unauthenticated {
				t.Errorf("code = %v, want Unauthenticated", status.Code(err))
			}
			if claims != nil {
				t.Errorf("handler ran with claims %+v", claims)
			}
		})
	}
}

func TestAuthUnary_CredentialMethodIgnoresStaleToken(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("cookie", SessionCookieName+"=abc.def"))
	claims, err := runAuth(t, ctx, credentialMethod)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if claims != nil {
		t.Errorf("claims = %+v, want none", claims)
	}
}

func TestAuthUnary_ProtectedMethodNoToken(t *testing.T) {
	_, err := runAuth(t, context.Background(), protectedMethod)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestAuthUnary_ProtectedMethodInvalidToken(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc.def"))
	_, err := runAuth(t, ctx, protectedMethod)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestAuthUnary_ProtectedMethodBearer(t *testing.T) {
	token := issueTestToken(t, security.NewTestSessionTokens())
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "bearer "+token))

	claims, err := runAuth(t, ctx, protectedMethod)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if claims == nil || claims.Email != "a@x.com" || claims.Pseudonym != "ada" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestAuthUnary_ProtectedMethodCookie(t *testing.T) {
	token := issueTestToken(t, security.NewTestSessionTokens())
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("cookie", "theme=dark; "+SessionCookieName+"="+token))

	claims, err := runAuth(t, ctx, protectedMethod)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if claims == nil || claims.Subject != "user-1" {
		t.Errorf("claims = %+v, want subject user-1", claims)
	}
}

func TestAuthUnary_TokenFromOtherSecretRejected(t *testing.T) {
	other, err := security.NewSessionTokens("another-secret", 0)
	if err != nil {
		t.Fatalf("NewSessionTokens: %v", err)
	}
	token := issueTestToken(t, other)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))

	_, err = runAuth(t, ctx, protectedMethod)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name string
		md   metadata.MD
		want string
	}{
		{"bearer", metadata.Pairs("authorization", "Bearer tok"), "tok"},
		{"case insensitive", metadata.Pairs("authorization", "BEARER tok"), "tok"},
		{"whitespace", metadata.Pairs("authorization", "  Bearer   tok  "), "tok"},
		{"wrong scheme", metadata.Pairs("authorization", "Basic tok"), ""},
		{"cookie", metadata.Pairs("cookie", SessionCookieName+"=tok"), "tok"},
		{"bearer wins", metadata.Pairs("authorization", "Bearer a", "cookie", SessionCookieName+"=b"), "a"},
		{"other cookie", metadata.Pairs("cookie", "session=tok"), ""},
		{"none", metadata.MD{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), tc.md)
			if got := extractToken(ctx); got != tc.want {
				t.Errorf("extractToken = %q, want %q", got, tc.want)
			}
		})
	}
	if got := extractToken(context.Background()); got != "" {
		t.Errorf("extractToken without metadata = %q, want empty", got)
	}
}
