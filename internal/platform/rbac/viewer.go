package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"poolfi/backend/internal/pool/domain"
	"poolfi/backend/internal/server/interceptors"
)

// ViewerFromContext returns the viewer for the verified session in ctx, or nil for anonymous callers.
func ViewerFromContext(ctx context.Context) *domain.Viewer {
	c, ok := interceptors.GetClaims(ctx)
	if !ok || c.Subject == "" {
		return nil
	}
	return &domain.Viewer{UserID: c.Subject, Email: c.Email, Pseudonym: c.Pseudonym}
}

// RequireViewer ensures the caller is authenticated.
// Returns the viewer on success; returns a gRPC Unauthenticated error otherwise.
func RequireViewer(ctx context.Context) (*domain.Viewer, error) {
	v := ViewerFromContext(ctx)
	if v == nil {
		return nil, status.Error(codes.Unauthenticated, "session required")
	}
	return v, nil
}
