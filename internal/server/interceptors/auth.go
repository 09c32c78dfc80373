package interceptors

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"poolfi/backend/internal/security"
)

const bearerPrefix = "bearer "

// SessionCookieName is the cookie that carries the session token for browser callers.
const SessionCookieName = "poolfi_session"

// AuthUnary returns a unary server interceptor that verifies the session token from the
// authorization metadata (Bearer) or the poolfi_session cookie and stores its claims in context.
// publicMethods may be called without a token; a valid token still sets the claims, and a token
// that fails verification is rejected as Unauthenticated on every method. credentialMethods
// (Signup, Login) issue sessions and ignore whatever token the caller still presents.
func AuthUnary(tokens *security.SessionTokens, publicMethods, credentialMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if credentialMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		token := extractToken(ctx)
		if token == "" {
			if publicMethods[info.FullMethod] {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid session")
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid session")
		}
		return handler(WithClaims(ctx, claims), req)
	}
}

// extractToken returns the Bearer token, else the session cookie value, else "".
func extractToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if t := bearerFrom(md); t != "" {
		return t
	}
	return cookieFrom(md)
}

func bearerFrom(md metadata.MD) string {
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func cookieFrom(md metadata.MD) string {
	for _, line := range md.Get("cookie") {
		cookies, err := http.ParseCookie(line)
		if err != nil {
			continue
		}
		for _, c := range cookies {
			if c.Name == SessionCookieName && c.Value != "" {
				return c.Value
			}
		}
	}
	return ""
}
