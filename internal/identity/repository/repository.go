package repository

import (
	"context"
	"errors"

	"poolfi/backend/internal/identity/domain"
)

// ErrDuplicateEmail is returned by Create when another user already holds the email.
var ErrDuplicateEmail = errors.New("email already registered")

// Repository defines persistence for users. Lookups return (nil, nil) when no user matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}
