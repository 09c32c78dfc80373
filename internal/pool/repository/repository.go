package repository

import (
	"context"

	"poolfi/backend/internal/pool/domain"
)

// Placement decides where a new pool lands in store order.
type Placement int

const (
	// PlaceFirst inserts at the head (most recently created first).
	PlaceFirst Placement = iota
	// PlaceLast appends to the tail.
	PlaceLast
)

// Repository defines persistence for access pools. Store order is insertion order as adjusted by Placement.
type Repository interface {
	// ListPools returns every pool in store order.
	ListPools(ctx context.Context) ([]*domain.AccessPool, error)
	// GetPool returns the pool with id, or nil if not found.
	// It returns an error only for storage failures, not for missing pools.
	GetPool(ctx context.Context, id string) (*domain.AccessPool, error)
	// CreatePool stores a new pool. Returns domain.ErrAlreadyExists if the id is taken.
	CreatePool(ctx context.Context, p *domain.AccessPool, placement Placement) error
	// UpdatePool replaces the stored pool when its version equals p.Version, then increments p.Version.
	// Returns domain.ErrVersionConflict on a stale version and domain.ErrPoolNotFound if the pool is gone.
	UpdatePool(ctx context.Context, p *domain.AccessPool) error
}
