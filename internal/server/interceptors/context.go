package interceptors

import (
	"context"

	"poolfi/backend/internal/security"
)

type contextKey struct{ name string }

var claimsKey = contextKey{"session_claims"}

// WithClaims returns a context carrying the verified session claims.
// Handlers read them via GetClaims or GetUserID.
func WithClaims(ctx context.Context, claims *security.Claims) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims returns the session claims from context and true if set; otherwise nil, false.
func GetClaims(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*security.Claims)
	return c, ok && c != nil
}

// GetUserID returns the subject id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	c, ok := GetClaims(ctx)
	if !ok || c.Subject == "" {
		return "", false
	}
	return c.Subject, true
}
