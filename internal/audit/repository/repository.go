package repository

import (
	"context"

	"poolfi/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByPool returns the pool's entries, newest first.
	ListByPool(ctx context.Context, poolID string, limit, offset int32) ([]*domain.AuditLog, error)
}
